package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/calendar"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/urfave/cli/v3"
)

func calendarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Google Calendar bridge",
		Commands: []*cli.Command{
			{
				Name:   "connect",
				Usage:  "Authorize Google Calendar access and list calendars",
				Action: r.CalendarConnect,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser authorization",
						Value: 2 * time.Minute,
					},
				},
			},
		},
	}
}

// CalendarConnect runs the OAuth code flow against a local callback server,
// registers the session, and prints the account's calendars.
func (r *Runner) CalendarConnect(ctx context.Context, cmd *cli.Command) error {
	bridge, err := calendar.NewBridge(r.config.Credentials.Google)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	handler := bridge.NewCallbackHandler(state)
	mux := http.NewServeMux()
	mux.Handle("/callback", handler)

	httpServer := &http.Server{
		Addr:    r.config.Server.Addr(),
		Handler: mux,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer httpServer.Shutdown(context.Background())

	authURL := bridge.AuthURL(state)
	r.writePlain("Opening browser for Google authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.writePlain("Open this URL manually:\n%s\n", authURL)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	sessionID, err := bridge.Connect(connectCtx, handler)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Calendar connected (session %s)", sessionID)

	calendars, err := bridge.Calendars(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	for _, entry := range calendars {
		marker := " "
		if entry.Primary {
			marker = "*"
		}
		r.writePlain("%s %s (%s)\n", marker, entry.Summary, entry.ID)
	}

	return nil
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/tunesmith-hq/tunesmith/internal/ui"
	"github.com/urfave/cli/v3"
)

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the catalog and split sheets in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization id to browse",
				Required: true,
			},
		},
		Action: r.Browse,
	}
}

// Browse launches the interactive catalog browser.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	organizationID := cmd.String("org")
	if organizationID == "" {
		return fmt.Errorf("%w: org", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	model := ui.NewModel(repositories.NewTrackRepository(db), organizationID)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}

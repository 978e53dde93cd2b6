package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tunesmith-hq/tunesmith/internal/server"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the REST API and realtime server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.config.Server.JWTSecret == "" {
		return fmt.Errorf("%w: server jwt_secret must be configured", shared.ErrMissingCredentials)
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: spotify credentials must be configured", shared.ErrMissingCredentials)
	}

	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.NewServer(db, *r.config, r.catalog, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a full-access API token for an organization",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization id the token is scoped to",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "User id embedded in the token",
				Value: "cli",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: 24 * time.Hour,
			},
		},
		Action: r.IssueToken,
	}
}

// IssueToken mints a signed bearer token for local API use.
func (r *Runner) IssueToken(ctx context.Context, cmd *cli.Command) error {
	if r.config.Server.JWTSecret == "" {
		return fmt.Errorf("%w: server jwt_secret must be configured", shared.ErrMissingCredentials)
	}

	claims := server.Claims{
		OrganizationID: cmd.String("org"),
		UserID:         cmd.String("user"),
		Permissions:    server.FullAccess(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cmd.Duration("ttl"))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(r.config.Server.JWTSecret))
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	return r.writePlain("%s\n", signed)
}

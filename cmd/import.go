package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/tunesmith-hq/tunesmith/internal/importer"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/urfave/cli/v3"
)

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a track, album, playlist, or artist from Spotify",
		ArgsUsage: "<type> <spotify-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization id the import belongs to",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the import summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Import,
	}
}

// Import runs one catalog import, streaming progress to the terminal.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: usage: import <type> <spotify-id>", shared.ErrMissingArgument)
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: spotify credentials must be configured", shared.ErrMissingCredentials)
	}

	req := importer.ImportRequest{
		Type:           cmd.Args().Get(0),
		SpotifyID:      cmd.Args().Get(1),
		OrganizationID: cmd.String("org"),
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := importer.NewImportEngine(
		r.catalog,
		repositories.NewCollaboratorRepository(db),
		repositories.NewAlbumRepository(db),
		repositories.NewTrackRepository(db),
		r.config.Import.RateLimit,
	)

	progress := make(chan importer.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
		}
	}()

	summary, err := engine.Run(ctx, req, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlainln("✓ %s", summary.Message)
	for _, track := range summary.Tracks {
		line := track.Name
		if track.ArtistName != "" {
			line = fmt.Sprintf("%s - %s", track.Name, track.ArtistName)
		}
		r.writePlain("  • %s\n", line)
	}

	return nil
}

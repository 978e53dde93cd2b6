package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tunesmith-hq/tunesmith/internal/formatter"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/urfave/cli/v3"
)

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the catalog with split rows to CSV or JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization id to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to stdout)",
			},
		},
		Action: r.Export,
	}
}

// Export writes the organization's tracks and splits in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if format != "csv" && format != "json" {
		return fmt.Errorf("%w: format must be csv or json", shared.ErrInvalidArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	trackRepo := repositories.NewTrackRepository(db)
	albumRepo := repositories.NewAlbumRepository(db)
	collabRepo := repositories.NewCollaboratorRepository(db)
	organizationID := cmd.String("org")

	list, err := trackRepo.List(map[string]any{"organization_id": organizationID})
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	tracks := make([]*models.Track, 0, len(list))
	for _, summary := range list {
		track, err := trackRepo.Get(summary.ID)
		if err != nil {
			return fmt.Errorf("failed to load track %s: %w", summary.ID, err)
		}
		tracks = append(tracks, track)
	}

	names := formatter.Names{
		Albums:        map[string]string{},
		Collaborators: map[string]string{},
	}
	albums, err := albumRepo.List(map[string]any{"organization_id": organizationID})
	if err != nil {
		return fmt.Errorf("failed to list albums: %w", err)
	}
	for _, album := range albums {
		names.Albums[album.ID] = album.Title
	}
	collaborators, err := collabRepo.List(map[string]any{"organization_id": organizationID})
	if err != nil {
		return fmt.Errorf("failed to list collaborators: %w", err)
	}
	for _, collaborator := range collaborators {
		names.Collaborators[collaborator.ID] = collaborator.DisplayName()
	}

	out := r.output
	if path := cmd.String("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	rows := formatter.Flatten(tracks, names)
	if format == "json" {
		return formatter.WriteJSON(out, rows)
	}
	return formatter.WriteCSV(out, rows)
}

func onboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "onboard",
		Usage:     "Create tracks from a CSV onboarding sheet",
		ArgsUsage: "<sheet.csv>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization id the tracks belong to",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Parse and report without writing anything",
			},
		},
		Action: r.Onboard,
	}
}

// Onboard parses an onboarding sheet and creates tracks, artists, and albums.
func (r *Runner) Onboard(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: usage: onboard <sheet.csv>", shared.ErrMissingArgument)
	}

	file, err := os.Open(cmd.Args().Get(0))
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}
	defer file.Close()

	rows, err := formatter.ParseOnboarding(file)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		r.writePlainln("Parsed %d tracks", len(rows))
		for _, row := range rows {
			r.writePlain("  • %s (%s)\n", row.Title, row.ArtistName)
		}
		return nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	trackRepo := repositories.NewTrackRepository(db)
	albumRepo := repositories.NewAlbumRepository(db)
	collabRepo := repositories.NewCollaboratorRepository(db)
	organizationID := cmd.String("org")

	albumIDs := map[string]string{}
	artistIDs := map[string]string{}
	created := 0

	for _, row := range rows {
		track := &models.Track{
			OrganizationID: organizationID,
			Title:          row.Title,
			Status:         row.Status,
			ISRC:           row.ISRC,
		}

		if row.AlbumTitle != "" {
			id, ok := albumIDs[row.AlbumTitle]
			if !ok {
				album := &models.Album{OrganizationID: organizationID, Title: row.AlbumTitle}
				if err := albumRepo.Create(album); err != nil {
					return fmt.Errorf("failed to create album %q: %w", row.AlbumTitle, err)
				}
				id = album.ID
				albumIDs[row.AlbumTitle] = id
			}
			track.AlbumID = id
		}

		if row.ArtistName != "" {
			id, ok := artistIDs[row.ArtistName]
			if !ok {
				artist := &models.Collaborator{OrganizationID: organizationID, ArtistName: row.ArtistName}
				if err := collabRepo.Create(artist); err != nil {
					return fmt.Errorf("failed to create artist %q: %w", row.ArtistName, err)
				}
				id = artist.ID
				artistIDs[row.ArtistName] = id
			}
			track.PrimaryArtistID = id
		}

		if err := trackRepo.Create(track); err != nil {
			return fmt.Errorf("failed to create track %q: %w", row.Title, err)
		}

		if track.PrimaryArtistID != "" {
			if _, err := trackRepo.LinkCollaborator(track.ID, track.PrimaryArtistID, "writer"); err != nil {
				return fmt.Errorf("failed to link artist: %w", err)
			}
		}
		created++
	}

	r.writePlainln("✓ Created %d tracks", created)
	return nil
}

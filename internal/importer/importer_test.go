package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/services"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/tunesmith-hq/tunesmith/internal/testutil"
)

const testOrg = "org_test"

type fixture struct {
	catalog       *testutil.FakeCatalog
	engine        *ImportEngine
	collaborators *repositories.CollaboratorRepository
	albums        *repositories.AlbumRepository
	tracks        *repositories.TrackRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	catalog := testutil.NewFakeCatalog()
	collaborators := repositories.NewCollaboratorRepository(db)
	albums := repositories.NewAlbumRepository(db)
	tracks := repositories.NewTrackRepository(db)

	return &fixture{
		catalog:       catalog,
		engine:        NewImportEngine(catalog, collaborators, albums, tracks, 1000),
		collaborators: collaborators,
		albums:        albums,
		tracks:        tracks,
	}
}

func spotifyTrack(id, name string, artists ...services.SpotifyArtist) services.SpotifyTrack {
	return services.SpotifyTrack{ID: id, Name: name, Artists: artists}
}

func TestTrackImport(t *testing.T) {
	t.Run("Creates Track Album And Artists", func(t *testing.T) {
		f := setup(t)

		artist := services.SpotifyArtist{ID: "art1", Name: "Vola"}
		track := spotifyTrack("trk1", "Straylight", artist)
		track.Album = services.SpotifyAlbum{ID: "alb1", Name: "Witness", ReleaseDate: "2021-05-21"}
		track.ExternalIDs.ISRC = "DKXXX2100001"
		f.catalog.Tracks["trk1"] = &track

		summary, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypeTrack, SpotifyID: "trk1", OrganizationID: testOrg,
		}, nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if !summary.Success || summary.Imported != 1 || summary.Total != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}

		stored, err := f.tracks.GetBySpotifyID("trk1", testOrg)
		if err != nil {
			t.Fatalf("track not stored: %v", err)
		}
		if stored.ISRC != "DKXXX2100001" {
			t.Errorf("expected ISRC carried, got %q", stored.ISRC)
		}
		if stored.AlbumID == "" {
			t.Error("expected album linked")
		}

		collaborator, err := f.collaborators.GetBySpotifyID("art1", testOrg)
		if err != nil {
			t.Fatalf("artist not stored: %v", err)
		}
		if collaborator.ArtistName != "Vola" {
			t.Errorf("expected artist name, got %q", collaborator.ArtistName)
		}
		if stored.PrimaryArtistID != collaborator.ID {
			t.Error("expected first artist as primary")
		}

		album, err := f.albums.GetBySpotifyID("alb1", testOrg)
		if err != nil {
			t.Fatalf("album not stored: %v", err)
		}
		if album.Title != "Witness" {
			t.Errorf("expected album title, got %q", album.Title)
		}
	})

	t.Run("Reimport Is Idempotent", func(t *testing.T) {
		f := setup(t)

		track := spotifyTrack("trk1", "Again", services.SpotifyArtist{ID: "art1", Name: "Rerun"})
		f.catalog.Tracks["trk1"] = &track

		req := ImportRequest{Type: TypeTrack, SpotifyID: "trk1", OrganizationID: testOrg}
		if _, err := f.engine.Run(context.Background(), req, nil); err != nil {
			t.Fatalf("first import failed: %v", err)
		}

		summary, err := f.engine.Run(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("second import failed: %v", err)
		}
		if summary.Imported != 0 || summary.Total != 1 {
			t.Errorf("expected 0 new of 1, got %+v", summary)
		}

		all, err := f.tracks.List(map[string]any{"organization_id": testOrg})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected 1 track after reimport, got %d", len(all))
		}
	})

	t.Run("Upstream Not Found Propagates", func(t *testing.T) {
		f := setup(t)

		_, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypeTrack, SpotifyID: "missing", OrganizationID: testOrg,
		}, nil)
		if !errors.Is(err, shared.ErrUpstreamNotFound) {
			t.Errorf("expected ErrUpstreamNotFound, got %v", err)
		}
	})

	t.Run("Invalid Request Rejected Before Any Call", func(t *testing.T) {
		f := setup(t)

		_, err := f.engine.Run(context.Background(), ImportRequest{Type: "nonsense", SpotifyID: "x", OrganizationID: testOrg}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(f.catalog.Calls) != 0 {
			t.Errorf("expected no upstream calls, got %v", f.catalog.Calls)
		}
	})
}

func TestAlbumImport(t *testing.T) {
	t.Run("Follows Tracklist Pagination", func(t *testing.T) {
		f := setup(t)

		artist := services.SpotifyArtist{ID: "art1", Name: "Pager"}

		firstPage := make([]services.SpotifyTrack, 50)
		for i := range firstPage {
			firstPage[i] = spotifyTrack(fmt.Sprintf("trk%02d", i), fmt.Sprintf("Cut %02d", i), artist)
		}
		secondPage := []services.SpotifyTrack{
			spotifyTrack("trk50", "Cut 50", artist),
			spotifyTrack("trk51", "Cut 51", artist),
		}

		next := testutil.StrPtr("https://api.spotify.com/v1/albums/alb1/tracks?offset=50&limit=50")
		f.catalog.Albums["alb1"] = &services.SpotifyAlbum{
			ID: "alb1", Name: "Double LP", TotalTracks: 52,
			Tracks: services.SpotifyPaginatedTracks{Items: firstPage, Total: 52, Next: next},
		}
		f.catalog.AlbumTrackPages["alb1"] = map[int]*services.SpotifyPaginatedTracks{
			50: {Items: secondPage, Total: 52, Offset: 50, Next: nil},
		}

		summary, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypeAlbum, SpotifyID: "alb1", OrganizationID: testOrg,
		}, nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if summary.Imported != 52 || summary.Total != 52 {
			t.Errorf("expected 52 of 52, got %+v", summary)
		}

		pageCalls := 0
		for _, call := range f.catalog.Calls {
			if call == "album_tracks:alb1@50" {
				pageCalls++
			}
		}
		if pageCalls != 1 {
			t.Errorf("expected exactly one pagination call, got %d (%v)", pageCalls, f.catalog.Calls)
		}
	})
}

func TestPlaylistImport(t *testing.T) {
	t.Run("Skips Episodes And Local Files", func(t *testing.T) {
		f := setup(t)

		playlist := &services.SpotifyPlaylist{ID: "pl1", Name: "Mixed Bag"}
		items := []struct {
			id, name, itemType string
			local              bool
		}{
			{"trk1", "Keeper One", "track", false},
			{"ep1", "Some Podcast", "episode", false},
			{"", "Local Rip", "track", true},
			{"trk2", "Keeper Two", "track", false},
		}
		for _, item := range items {
			var entry services.SpotifyPlaylistItem
			entry.IsLocal = item.local
			entry.Track.Type = item.itemType
			entry.Track.SpotifyTrack = spotifyTrack(item.id, item.name, services.SpotifyArtist{ID: "art1", Name: "Curator"})
			playlist.Tracks.Items = append(playlist.Tracks.Items, entry)
		}
		f.catalog.Playlists["pl1"] = playlist

		summary, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypePlaylist, SpotifyID: "pl1", OrganizationID: testOrg,
		}, nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if summary.Imported != 2 || summary.Total != 2 {
			t.Errorf("expected 2 importable items, got %+v", summary)
		}
	})
}

func TestArtistImport(t *testing.T) {
	t.Run("Fetches Artist Name Before Discography", func(t *testing.T) {
		f := setup(t)

		f.catalog.Artists["art1"] = &services.SpotifyArtist{ID: "art1", Name: "Named Up Front"}
		f.catalog.ArtistAlbumPages["art1"] = map[int]*services.SpotifyPaginatedAlbums{
			0: {Items: nil, Total: 0, Next: nil},
		}

		summary, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypeArtist, SpotifyID: "art1", OrganizationID: testOrg,
		}, nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if summary.Total != 0 {
			t.Errorf("expected empty discography, got %+v", summary)
		}

		collaborator, err := f.collaborators.GetBySpotifyID("art1", testOrg)
		if err != nil {
			t.Fatalf("artist not stored: %v", err)
		}
		if collaborator.ArtistName != "Named Up Front" {
			t.Errorf("expected artist row named from artist fetch, got %q", collaborator.ArtistName)
		}

		if f.catalog.Calls[0] != "artist:art1" {
			t.Errorf("expected artist fetched first, got %v", f.catalog.Calls)
		}
	})

	t.Run("Pages Discography At Fixed Offsets", func(t *testing.T) {
		f := setup(t)

		f.catalog.Artists["art1"] = &services.SpotifyArtist{ID: "art1", Name: "Prolific"}

		makeAlbums := func(start, count int) []services.SpotifyAlbum {
			albums := make([]services.SpotifyAlbum, count)
			for i := range albums {
				id := fmt.Sprintf("alb%03d", start+i)
				albums[i] = services.SpotifyAlbum{ID: id, Name: "Album " + id}
				f.catalog.Albums[id] = &services.SpotifyAlbum{
					ID: id, Name: "Album " + id, TotalTracks: 1,
					Tracks: services.SpotifyPaginatedTracks{
						Items: []services.SpotifyTrack{
							spotifyTrack("trk_"+id, "Single "+id, services.SpotifyArtist{ID: "art1", Name: "Prolific"}),
						},
						Total: 1,
					},
				}
			}
			return albums
		}

		f.catalog.ArtistAlbumPages["art1"] = map[int]*services.SpotifyPaginatedAlbums{
			0:   {Items: makeAlbums(0, 50), Total: 120, Next: testutil.StrPtr("next")},
			50:  {Items: makeAlbums(50, 50), Total: 120, Next: testutil.StrPtr("next")},
			100: {Items: makeAlbums(100, 20), Total: 120, Next: nil},
		}

		summary, err := f.engine.Run(context.Background(), ImportRequest{
			Type: TypeArtist, SpotifyID: "art1", OrganizationID: testOrg,
		}, nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if summary.Total != 120 || summary.Imported != 120 {
			t.Errorf("expected 120 tracks imported, got %+v", summary)
		}

		pageOffsets := []string{}
		for _, call := range f.catalog.Calls {
			switch call {
			case "artist_albums:art1@0", "artist_albums:art1@50", "artist_albums:art1@100":
				pageOffsets = append(pageOffsets, call)
			}
		}
		if len(pageOffsets) != 3 {
			t.Errorf("expected exactly 3 discography pages, got %v", pageOffsets)
		}
	})
}

func TestProgressReporting(t *testing.T) {
	t.Run("Full Channel Never Blocks", func(t *testing.T) {
		f := setup(t)

		track := spotifyTrack("trk1", "Quiet", services.SpotifyArtist{ID: "art1", Name: "Soft"})
		f.catalog.Tracks["trk1"] = &track

		// Unbuffered channel with no reader: sends must be dropped, not block.
		progress := make(chan ProgressUpdate)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = f.engine.Run(context.Background(), ImportRequest{
				Type: TypeTrack, SpotifyID: "trk1", OrganizationID: testOrg,
			}, progress)
		}()

		<-done
	})

	t.Run("Cancelled Context Stops The Import", func(t *testing.T) {
		f := setup(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.engine.Run(ctx, ImportRequest{Type: TypeTrack, SpotifyID: "trk1", OrganizationID: testOrg}, nil)
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	})
}

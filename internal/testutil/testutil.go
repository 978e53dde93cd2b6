// package testutil provides shared fixtures for package tests: an in-memory
// migrated database and a scripted catalog service.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/tunesmith-hq/tunesmith/internal/services"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// SetupTestDB opens an in-memory sqlite database with migrations applied.
// The handle is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// FakeCatalog is a scripted [services.Service] for import tests. Endpoint
// methods return the configured objects keyed by id and record every call.
type FakeCatalog struct {
	Tracks    map[string]*services.SpotifyTrack
	Albums    map[string]*services.SpotifyAlbum
	Playlists map[string]*services.SpotifyPlaylist
	Artists   map[string]*services.SpotifyArtist

	// AlbumTrackPages and ArtistAlbumPages are keyed by offset.
	AlbumTrackPages  map[string]map[int]*services.SpotifyPaginatedTracks
	ArtistAlbumPages map[string]map[int]*services.SpotifyPaginatedAlbums

	// Calls records endpoint invocations as "method:id" strings, in order.
	Calls []string

	// Err, when set, is returned by every endpoint method.
	Err error
}

var _ services.Service = (*FakeCatalog)(nil)

// NewFakeCatalog creates an empty scripted catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Tracks:           map[string]*services.SpotifyTrack{},
		Albums:           map[string]*services.SpotifyAlbum{},
		Playlists:        map[string]*services.SpotifyPlaylist{},
		Artists:          map[string]*services.SpotifyArtist{},
		AlbumTrackPages:  map[string]map[int]*services.SpotifyPaginatedTracks{},
		ArtistAlbumPages: map[string]map[int]*services.SpotifyPaginatedAlbums{},
	}
}

func (f *FakeCatalog) record(method, id string) {
	f.Calls = append(f.Calls, method+":"+id)
}

func (f *FakeCatalog) Authenticate(ctx context.Context) error {
	f.record("authenticate", "")
	return f.Err
}

func (f *FakeCatalog) Name() string { return "FakeCatalog" }

func (f *FakeCatalog) Track(ctx context.Context, trackID string) (*services.SpotifyTrack, error) {
	f.record("track", trackID)
	if f.Err != nil {
		return nil, f.Err
	}
	track, ok := f.Tracks[trackID]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", shared.ErrUpstreamNotFound, trackID)
	}
	return track, nil
}

func (f *FakeCatalog) Album(ctx context.Context, albumID string) (*services.SpotifyAlbum, error) {
	f.record("album", albumID)
	if f.Err != nil {
		return nil, f.Err
	}
	album, ok := f.Albums[albumID]
	if !ok {
		return nil, fmt.Errorf("%w: album %s", shared.ErrUpstreamNotFound, albumID)
	}
	return album, nil
}

func (f *FakeCatalog) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*services.SpotifyPaginatedTracks, error) {
	f.record("album_tracks", fmt.Sprintf("%s@%d", albumID, offset))
	if f.Err != nil {
		return nil, f.Err
	}
	pages, ok := f.AlbumTrackPages[albumID]
	if !ok {
		return nil, fmt.Errorf("%w: album %s", shared.ErrUpstreamNotFound, albumID)
	}
	page, ok := pages[offset]
	if !ok {
		return nil, fmt.Errorf("%w: album %s offset %d", shared.ErrUpstreamNotFound, albumID, offset)
	}
	return page, nil
}

func (f *FakeCatalog) Playlist(ctx context.Context, playlistID string) (*services.SpotifyPlaylist, error) {
	f.record("playlist", playlistID)
	if f.Err != nil {
		return nil, f.Err
	}
	playlist, ok := f.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrUpstreamNotFound, playlistID)
	}
	return playlist, nil
}

func (f *FakeCatalog) Artist(ctx context.Context, artistID string) (*services.SpotifyArtist, error) {
	f.record("artist", artistID)
	if f.Err != nil {
		return nil, f.Err
	}
	artist, ok := f.Artists[artistID]
	if !ok {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrUpstreamNotFound, artistID)
	}
	return artist, nil
}

func (f *FakeCatalog) ArtistAlbums(ctx context.Context, artistID string, limit, offset int) (*services.SpotifyPaginatedAlbums, error) {
	f.record("artist_albums", fmt.Sprintf("%s@%d", artistID, offset))
	if f.Err != nil {
		return nil, f.Err
	}
	pages, ok := f.ArtistAlbumPages[artistID]
	if !ok {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrUpstreamNotFound, artistID)
	}
	page, ok := pages[offset]
	if !ok {
		return nil, fmt.Errorf("%w: artist %s offset %d", shared.ErrUpstreamNotFound, artistID, offset)
	}
	return page, nil
}

// StrPtr returns a pointer to s, for paginated Next fields.
func StrPtr(s string) *string { return &s }

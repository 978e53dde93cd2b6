// package services defines interface Service for interacting with upstream catalog APIs
//
// Spotify is the only production implementation.
package services

import (
	"context"
)

// Service defines the interface for upstream music catalog providers that the
// import pipeline pulls artist/album/track data from.
type Service interface {
	// Authenticate performs client-credentials authentication with the provider.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context) error

	// Track retrieves a single track by provider ID.
	Track(ctx context.Context, trackID string) (*SpotifyTrack, error)

	// Album retrieves an album by provider ID, including its first page of tracks.
	Album(ctx context.Context, albumID string) (*SpotifyAlbum, error)

	// AlbumTracks retrieves one page of an album's tracks.
	AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*SpotifyPaginatedTracks, error)

	// Playlist retrieves a playlist by provider ID, including its items.
	Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error)

	// Artist retrieves an artist by provider ID.
	Artist(ctx context.Context, artistID string) (*SpotifyArtist, error)

	// ArtistAlbums retrieves one page of an artist's albums.
	ArtistAlbums(ctx context.Context, artistID string, limit, offset int) (*SpotifyPaginatedAlbums, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

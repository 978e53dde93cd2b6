// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type externalIDs struct {
	ISRC string `json:"isrc"`
	UPC  string `json:"upc"`
	EAN  string `json:"ean"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyTrack represents a Spotify track. The album field is only populated
// on full track objects, not on simplified tracks nested inside an album.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated page of simplified tracks
// (album tracklists).
type SpotifyPaginatedTracks struct {
	Items    []SpotifyTrack `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Artists     []SpotifyArtist        `json:"artists"`
	ReleaseDate string                 `json:"release_date"`
	TotalTracks int                    `json:"total_tracks"`
	ExternalIDs externalIDs            `json:"external_ids"`
	Tracks      SpotifyPaginatedTracks `json:"tracks"`
	URI         string                 `json:"uri"`
}

// SpotifyPaginatedAlbums represents a paginated page of an artist's albums.
type SpotifyPaginatedAlbums struct {
	Items    []SpotifyAlbum `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// SpotifyPlaylistItem represents one entry in a playlist. Entries can be
// podcast episodes or local files, which imports skip.
type SpotifyPlaylistItem struct {
	AddedAt string `json:"added_at"`
	IsLocal bool   `json:"is_local"`
	Track   struct {
		Type string `json:"type"` // "track" or "episode"
		SpotifyTrack
	} `json:"track"`
}

type playlistTracks struct {
	Total int                   `json:"total"`
	Items []SpotifyPlaylistItem `json:"items"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// ImportableItems returns the playlist's entries that are actual Spotify
// tracks, excluding episodes and local files.
func (p *SpotifyPlaylist) ImportableItems() []SpotifyTrack {
	var tracks []SpotifyTrack
	for _, item := range p.Tracks.Items {
		if item.IsLocal || item.Track.Type != "track" || item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, item.Track.SpotifyTrack)
	}
	return tracks
}

// SpotifyService implements the Service interface for Spotify API interactions.
//
// Uses the OAuth2 client-credentials grant: the catalog endpoints used by
// imports need no user consent.
type SpotifyService struct {
	creds      clientcredentials.Config
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewSpotifyService creates a new Spotify service with the given credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	return &SpotifyService{
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyTokenURL,
		},
		httpClient: http.DefaultClient,
	}, nil
}

// Authenticate performs the client-credentials token exchange and caches a
// self-refreshing token source.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	tokens := s.creds.TokenSource(ctx)
	if _, err := tokens.Token(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
	}
	s.tokens = tokens
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result. Upstream status codes are mapped onto the
// shared sentinel errors.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.tokens == nil {
		if err := s.Authenticate(ctx); err != nil {
			return err
		}
	}

	token, err := s.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrUpstreamNotFound, endpoint)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrUpstreamAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry-after %s", shared.ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, fmt.Sprintf("/tracks/%s", trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Album retrieves an album by ID, including its first page of tracks.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, fmt.Sprintf("/albums/%s", albumID), &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// AlbumTracks retrieves one page of an album's tracks.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*SpotifyPaginatedTracks, error) {
	limit = clampPageSize(limit)

	var page SpotifyPaginatedTracks
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", albumID, limit, offset)
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Playlist retrieves a playlist by ID, including its items.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, fmt.Sprintf("/playlists/%s", playlistID), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*SpotifyArtist, error) {
	var artist SpotifyArtist
	if err := s.doRequest(ctx, fmt.Sprintf("/artists/%s", artistID), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// ArtistAlbums retrieves one page of an artist's albums.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string, limit, offset int) (*SpotifyPaginatedAlbums, error) {
	limit = clampPageSize(limit)

	var page SpotifyPaginatedAlbums
	endpoint := fmt.Sprintf("/artists/%s/albums?limit=%d&offset=%d", artistID, limit, offset)
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

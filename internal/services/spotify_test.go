package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

func newTestService(t *testing.T) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func activateMock(t *testing.T) {
	t.Helper()

	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, spotifyTokenURL,
		httpmock.NewJsonResponderOrPanic(200, map[string]any{
			"access_token": "test_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}))
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		srv := newTestService(t)
		if srv.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", srv.Name())
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "only_id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSpotifyRequests(t *testing.T) {
	t.Run("Track Decodes Response", func(t *testing.T) {
		activateMock(t)
		srv := newTestService(t)

		httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/tracks/trk1",
			httpmock.NewJsonResponderOrPanic(200, map[string]any{
				"id":   "trk1",
				"name": "Mock Song",
				"artists": []map[string]any{
					{"id": "art1", "name": "Mock Artist"},
				},
				"external_ids": map[string]any{"isrc": "USMOCK000001"},
			}))

		track, err := srv.Track(context.Background(), "trk1")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if track.Name != "Mock Song" {
			t.Errorf("expected track name, got %q", track.Name)
		}
		if track.ExternalIDs.ISRC != "USMOCK000001" {
			t.Errorf("expected ISRC decoded, got %q", track.ExternalIDs.ISRC)
		}
		if len(track.Artists) != 1 || track.Artists[0].Name != "Mock Artist" {
			t.Errorf("expected artist decoded, got %+v", track.Artists)
		}
	})

	t.Run("Status Mapping", func(t *testing.T) {
		cases := []struct {
			name   string
			status int
			want   error
		}{
			{"Not Found", 404, shared.ErrUpstreamNotFound},
			{"Unauthorized", 401, shared.ErrUpstreamAuth},
			{"Forbidden", 403, shared.ErrUpstreamAuth},
			{"Rate Limited", 429, shared.ErrRateLimited},
			{"Server Error", 500, shared.ErrAPIRequest},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				activateMock(t)
				srv := newTestService(t)

				httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/tracks/trk1",
					httpmock.NewStringResponder(tc.status, "{}"))

				_, err := srv.Track(context.Background(), "trk1")
				if !errors.Is(err, tc.want) {
					t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
				}
			})
		}
	})

	t.Run("Album Tracks Clamps Page Size", func(t *testing.T) {
		activateMock(t)
		srv := newTestService(t)

		httpmock.RegisterResponder(http.MethodGet, spotifyBaseURL+"/albums/alb1/tracks",
			func(req *http.Request) (*http.Response, error) {
				if got := req.URL.Query().Get("limit"); got != "50" {
					t.Errorf("expected limit clamped to 50, got %s", got)
				}
				return httpmock.NewJsonResponse(200, map[string]any{"items": []any{}, "total": 0})
			})

		if _, err := srv.AlbumTracks(context.Background(), "alb1", 500, 0); err != nil {
			t.Fatalf("request failed: %v", err)
		}
	})

	t.Run("Playlist Importable Items Filter", func(t *testing.T) {
		playlist := &SpotifyPlaylist{}
		playlist.Tracks.Items = []SpotifyPlaylistItem{
			{Track: struct {
				Type string `json:"type"`
				SpotifyTrack
			}{Type: "track", SpotifyTrack: SpotifyTrack{ID: "t1", Name: "Keep"}}},
			{Track: struct {
				Type string `json:"type"`
				SpotifyTrack
			}{Type: "episode", SpotifyTrack: SpotifyTrack{ID: "e1", Name: "Drop"}}},
			{IsLocal: true, Track: struct {
				Type string `json:"type"`
				SpotifyTrack
			}{Type: "track", SpotifyTrack: SpotifyTrack{ID: "", Name: "Local"}}},
		}

		items := playlist.ImportableItems()
		if len(items) != 1 || items[0].ID != "t1" {
			t.Errorf("expected only real tracks, got %+v", items)
		}
	})
}

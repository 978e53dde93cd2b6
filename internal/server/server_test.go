package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/services"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/tunesmith-hq/tunesmith/internal/testutil"
)

const (
	testOrg    = "org_test"
	testSecret = "test-secret"
)

type serverFixture struct {
	server  *Server
	handler http.Handler
	catalog *testutil.FakeCatalog
	token   string
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	catalog := testutil.NewFakeCatalog()

	cfg := shared.Config{}
	cfg.Server.JWTSecret = testSecret
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Import.RateLimit = 1000

	srv := NewServer(db, cfg, catalog, shared.NewLogger(nil))

	token, err := IssueToken(Identity{
		OrganizationID: testOrg,
		UserID:         "user_1",
		Permissions:    FullAccess(),
	}, testSecret)
	require.NoError(t, err)

	return &serverFixture{
		server:  srv,
		handler: srv.Router(),
		catalog: catalog,
		token:   token,
	}
}

func (f *serverFixture) request(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder, data any) envelope {
	t.Helper()

	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *apiError       `json:"error"`
		Meta    *ListMeta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &raw))

	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return envelope{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func TestAuthentication(t *testing.T) {
	f := setupServer(t)

	t.Run("Missing Token Rejected", func(t *testing.T) {
		recorder := f.request(t, http.MethodGet, "/api/tracks", nil, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Garbage Token Rejected", func(t *testing.T) {
		recorder := f.request(t, http.MethodGet, "/api/tracks", nil, "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Wrong Secret Rejected", func(t *testing.T) {
		token, err := IssueToken(Identity{OrganizationID: testOrg, Permissions: FullAccess()}, "other-secret")
		require.NoError(t, err)

		recorder := f.request(t, http.MethodGet, "/api/tracks", nil, token)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Permission Gate Enforced", func(t *testing.T) {
		readOnly, err := IssueToken(Identity{
			OrganizationID: testOrg,
			Permissions:    PermissionSet{ReadCatalog: true},
		}, testSecret)
		require.NoError(t, err)

		recorder := f.request(t, http.MethodPost, "/api/tracks", models.Track{Title: "Nope"}, readOnly)
		assert.Equal(t, http.StatusForbidden, recorder.Code)

		recorder = f.request(t, http.MethodGet, "/api/tracks", nil, readOnly)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Health Check Is Public", func(t *testing.T) {
		recorder := f.request(t, http.MethodGet, "/healthz", nil, "")
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestTrackEndpoints(t *testing.T) {
	f := setupServer(t)

	var created models.Track
	t.Run("Create", func(t *testing.T) {
		recorder := f.request(t, http.MethodPost, "/api/tracks", map[string]any{
			"title":  "Wire Frame",
			"status": "draft",
		}, f.token)
		require.Equal(t, http.StatusCreated, recorder.Code)

		decodeEnvelope(t, recorder, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, testOrg, created.OrganizationID)
	})

	t.Run("Get", func(t *testing.T) {
		recorder := f.request(t, http.MethodGet, "/api/tracks/"+created.ID, nil, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var got models.Track
		decodeEnvelope(t, recorder, &got)
		assert.Equal(t, "Wire Frame", got.Title)
	})

	t.Run("Cross Organization Reads As Not Found", func(t *testing.T) {
		otherToken, err := IssueToken(Identity{
			OrganizationID: "other_org",
			Permissions:    FullAccess(),
		}, testSecret)
		require.NoError(t, err)

		recorder := f.request(t, http.MethodGet, "/api/tracks/"+created.ID, nil, otherToken)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("List With Meta", func(t *testing.T) {
		recorder := f.request(t, http.MethodGet, "/api/tracks?limit=10", nil, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		env := decodeEnvelope(t, recorder, nil)
		require.NotNil(t, env.Meta)
		assert.Equal(t, 10, env.Meta.Limit)
		assert.Equal(t, 1, env.Meta.Total)
	})

	t.Run("Invalid Body Is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tracks", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Authorization", "Bearer "+f.token)
		recorder := httptest.NewRecorder()
		f.handler.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestSplitsEndpoint(t *testing.T) {
	f := setupServer(t)

	var writer models.Collaborator
	recorder := f.request(t, http.MethodPost, "/api/collaborators", map[string]any{
		"artist_name": "Splitter",
	}, f.token)
	require.Equal(t, http.StatusCreated, recorder.Code)
	decodeEnvelope(t, recorder, &writer)

	var track models.Track
	recorder = f.request(t, http.MethodPost, "/api/tracks", map[string]any{"title": "Divided"}, f.token)
	require.Equal(t, http.StatusCreated, recorder.Code)
	decodeEnvelope(t, recorder, &track)

	t.Run("Save Gate Rejects Empty Collaborator", func(t *testing.T) {
		recorder := f.request(t, http.MethodPut, "/api/tracks/"+track.ID+"/splits", map[string]any{
			"collaborators": []map[string]any{
				{"id": "", "songwriting_split": "100"},
			},
		}, f.token)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Save Gate Rejects Duplicates", func(t *testing.T) {
		recorder := f.request(t, http.MethodPut, "/api/tracks/"+track.ID+"/splits", map[string]any{
			"collaborators": []map[string]any{
				{"id": writer.ID, "songwriting_split": "50"},
				{"id": writer.ID, "songwriting_split": "50"},
			},
		}, f.token)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Imbalanced Totals Still Save", func(t *testing.T) {
		recorder := f.request(t, http.MethodPut, "/api/tracks/"+track.ID+"/splits", map[string]any{
			"collaborators": []map[string]any{
				{"id": writer.ID, "role": "writer", "songwriting_split": "40"},
			},
		}, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var payload struct {
			Track  models.Track `json:"track"`
			Totals []struct {
				Category string  `json:"category"`
				Sum      float64 `json:"sum"`
				Balance  string  `json:"balance"`
			} `json:"totals"`
		}
		decodeEnvelope(t, recorder, &payload)

		require.Len(t, payload.Track.Collaborators, 1)
		assert.Equal(t, 40.0, payload.Track.Collaborators[0].SongwritingSplit)

		require.Len(t, payload.Totals, 3)
		assert.Equal(t, "under", payload.Totals[0].Balance)
	})
}

func TestMergeEndpoint(t *testing.T) {
	f := setupServer(t)

	create := func(body map[string]any) models.Collaborator {
		recorder := f.request(t, http.MethodPost, "/api/collaborators", body, f.token)
		require.Equal(t, http.StatusCreated, recorder.Code)
		var c models.Collaborator
		decodeEnvelope(t, recorder, &c)
		return c
	}

	target := create(map[string]any{"artist_name": "Canon", "email": "canon@x.com"})
	source := create(map[string]any{"artist_name": "Canon Alias", "email": "alias@x.com"})

	t.Run("Preview Lists Conflicts", func(t *testing.T) {
		recorder := f.request(t, http.MethodPost, "/api/collaborators/merge", map[string]any{
			"target_id":    target.ID,
			"source_ids":   []string{source.ID},
			"preview_only": true,
		}, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var preview struct {
			Fields []struct {
				FieldName   string `json:"field_name"`
				HasConflict bool   `json:"has_conflict"`
			} `json:"fields"`
		}
		decodeEnvelope(t, recorder, &preview)

		names := map[string]bool{}
		for _, field := range preview.Fields {
			if field.HasConflict {
				names[field.FieldName] = true
			}
		}
		assert.True(t, names["artist_name"])
		assert.True(t, names["email"])
	})

	t.Run("Apply Without Resolutions Is 400", func(t *testing.T) {
		recorder := f.request(t, http.MethodPost, "/api/collaborators/merge", map[string]any{
			"target_id":  target.ID,
			"source_ids": []string{source.ID},
		}, f.token)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Apply With Resolutions Succeeds", func(t *testing.T) {
		recorder := f.request(t, http.MethodPost, "/api/collaborators/merge", map[string]any{
			"target_id":  target.ID,
			"source_ids": []string{source.ID},
			"resolved_conflicts": map[string]string{
				"artist_name": "Canon",
				"email":       "canon@x.com",
			},
		}, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var result struct {
			Success       bool `json:"success"`
			AffectedSongs int  `json:"affected_songs"`
		}
		decodeEnvelope(t, recorder, &result)
		assert.True(t, result.Success)

		recorder = f.request(t, http.MethodGet, "/api/collaborators/"+source.ID, nil, f.token)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestImportEndpoint(t *testing.T) {
	t.Run("Upstream Not Found Maps To 404", func(t *testing.T) {
		f := setupServer(t)

		recorder := f.request(t, http.MethodPost, "/api/import-from-spotify", map[string]any{
			"type":      "track",
			"spotifyId": "missing",
		}, f.token)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("Upstream Auth Failure Masked As 500", func(t *testing.T) {
		f := setupServer(t)
		f.catalog.Err = fmt.Errorf("%w: status 401", shared.ErrUpstreamAuth)

		recorder := f.request(t, http.MethodPost, "/api/import-from-spotify", map[string]any{
			"type":      "track",
			"spotifyId": "trk1",
		}, f.token)
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})

	t.Run("Invalid Type Is 400", func(t *testing.T) {
		f := setupServer(t)

		recorder := f.request(t, http.MethodPost, "/api/import-from-spotify", map[string]any{
			"type":      "mixtape",
			"spotifyId": "x",
		}, f.token)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Successful Import Returns Summary", func(t *testing.T) {
		f := setupServer(t)
		f.catalog.Tracks["trk1"] = &services.SpotifyTrack{
			ID: "trk1", Name: "Hit",
			Artists: []services.SpotifyArtist{{ID: "art1", Name: "Star"}},
		}

		recorder := f.request(t, http.MethodPost, "/api/import-from-spotify", map[string]any{
			"type":      "track",
			"spotifyId": "trk1",
		}, f.token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var summary struct {
			Success  bool `json:"success"`
			Imported int  `json:"imported"`
		}
		decodeEnvelope(t, recorder, &summary)
		assert.True(t, summary.Success)
		assert.Equal(t, 1, summary.Imported)
	})
}

func TestRemindersEndpoint(t *testing.T) {
	f := setupServer(t)

	recorder := f.request(t, http.MethodPost, "/api/tracks", map[string]any{"title": "Needy"}, f.token)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = f.request(t, http.MethodGet, "/api/reminders", nil, f.token)
	require.Equal(t, http.StatusOK, recorder.Code)

	var reminders []struct {
		Type    string `json:"type"`
		TrackID string `json:"track_id"`
	}
	decodeEnvelope(t, recorder, &reminders)

	types := map[string]bool{}
	for _, reminder := range reminders {
		types[reminder.Type] = true
	}
	assert.True(t, types["missing_info"])
	assert.True(t, types["missing_splits"])
}

func TestSessionScope(t *testing.T) {
	f := setupServer(t)

	recorder := f.request(t, http.MethodPost, "/api/sessions", map[string]any{
		"title":      "Future Session",
		"start_time": "2099-01-01T10:00:00Z",
		"end_time":   "2099-01-01T12:00:00Z",
	}, f.token)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = f.request(t, http.MethodGet, "/api/sessions?scope=upcoming", nil, f.token)
	require.Equal(t, http.StatusOK, recorder.Code)

	var upcoming []models.Session
	decodeEnvelope(t, recorder, &upcoming)
	assert.Len(t, upcoming, 1)

	recorder = f.request(t, http.MethodGet, "/api/sessions?scope=past", nil, f.token)
	require.Equal(t, http.StatusOK, recorder.Code)

	var past []models.Session
	decodeEnvelope(t, recorder, &past)
	assert.Empty(t, past)

	recorder = f.request(t, http.MethodGet, "/api/sessions?scope=sideways", nil, f.token)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	criteria := map[string]any{"organization_id": identity.OrganizationID}
	if search := r.URL.Query().Get("search"); search != "" {
		criteria["search"] = search
	}

	albums, err := s.albums.List(criteria)
	if err != nil {
		respondFromError(w, err)
		return
	}

	limit, offset := pageParams(r)
	respondList(w, paginate(albums, limit, offset), ListMeta{Limit: limit, Offset: offset, Total: len(albums)})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.ownedAlbum(r)
	if err != nil {
		respondFromError(w, err)
		return
	}
	respondData(w, http.StatusOK, album)
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var album models.Album
	if err := decodeBody(r, &album); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	album.OrganizationID = identity.OrganizationID

	if err := s.albums.Create(&album); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, album.ID, &album)
	respondData(w, http.StatusCreated, &album)
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedAlbum(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var album models.Album
	if err := decodeBody(r, &album); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	album.ID = existing.ID
	album.OrganizationID = existing.OrganizationID

	if err := s.albums.Update(&album); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, album.ID, &album)
	respondData(w, http.StatusOK, &album)
}

// handleDeleteAlbum soft-deletes the album. Its tracks survive with their
// album reference cleared.
func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedAlbum(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	if err := s.albums.Delete(existing.ID); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, existing.ID, nil)
	respondData(w, http.StatusOK, map[string]string{"id": existing.ID})
}

func (s *Server) ownedAlbum(r *http.Request) (*models.Album, error) {
	identity, _ := IdentityFrom(r.Context())

	album, err := s.albums.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if album.OrganizationID != identity.OrganizationID {
		return nil, shared.ErrNotFound
	}
	return album, nil
}

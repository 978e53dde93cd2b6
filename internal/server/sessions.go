package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// handleListSessions lists sessions, optionally scoped with
// ?scope=upcoming|past relative to the current wall clock.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	criteria := map[string]any{"organization_id": identity.OrganizationID}
	switch scope := r.URL.Query().Get("scope"); scope {
	case "upcoming", "past":
		criteria["scope"] = scope
	case "":
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "scope must be upcoming or past")
		return
	}
	if from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from")); err == nil {
		criteria["from"] = from
	}
	if to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to")); err == nil {
		criteria["to"] = to
	}

	sessions, err := s.sessions.List(criteria)
	if err != nil {
		respondFromError(w, err)
		return
	}

	limit, offset := pageParams(r)
	respondList(w, paginate(sessions, limit, offset), ListMeta{Limit: limit, Offset: offset, Total: len(sessions)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.ownedSession(r)
	if err != nil {
		respondFromError(w, err)
		return
	}
	respondData(w, http.StatusOK, session)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var session models.Session
	if err := decodeBody(r, &session); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	session.OrganizationID = identity.OrganizationID

	if err := s.sessions.Create(&session); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, session.ID, &session)
	respondData(w, http.StatusCreated, &session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedSession(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var session models.Session
	if err := decodeBody(r, &session); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	session.ID = existing.ID
	session.OrganizationID = existing.OrganizationID

	if err := s.sessions.Update(&session); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, session.ID, &session)
	respondData(w, http.StatusOK, &session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedSession(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	if err := s.sessions.Delete(existing.ID); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, existing.ID, nil)
	respondData(w, http.StatusOK, map[string]string{"id": existing.ID})
}

func (s *Server) ownedSession(r *http.Request) (*models.Session, error) {
	identity, _ := IdentityFrom(r.Context())

	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if session.OrganizationID != identity.OrganizationID {
		return nil, shared.ErrNotFound
	}
	return session, nil
}

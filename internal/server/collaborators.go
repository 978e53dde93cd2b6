package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	criteria := map[string]any{"organization_id": identity.OrganizationID}
	if search := r.URL.Query().Get("search"); search != "" {
		criteria["search"] = search
	}

	collaborators, err := s.collaborators.List(criteria)
	if err != nil {
		respondFromError(w, err)
		return
	}

	limit, offset := pageParams(r)
	total := len(collaborators)
	respondList(w, paginate(collaborators, limit, offset), ListMeta{Limit: limit, Offset: offset, Total: total})
}

func (s *Server) handleGetCollaborator(w http.ResponseWriter, r *http.Request) {
	collaborator, err := s.ownedCollaborator(r)
	if err != nil {
		respondFromError(w, err)
		return
	}
	respondData(w, http.StatusOK, collaborator)
}

func (s *Server) handleCreateCollaborator(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var collaborator models.Collaborator
	if err := decodeBody(r, &collaborator); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	collaborator.OrganizationID = identity.OrganizationID

	if err := s.collaborators.Create(&collaborator); err != nil {
		respondFromError(w, err)
		return
	}

	if len(collaborator.Relations) > 0 {
		if err := s.collaborators.SetRelations(collaborator.ID, collaborator.Relations); err != nil {
			respondFromError(w, err)
			return
		}
	}

	s.publish(identity.OrganizationID, realtime.EventUserMessageUpdated, collaborator.ID, &collaborator)
	respondData(w, http.StatusCreated, &collaborator)
}

func (s *Server) handleUpdateCollaborator(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedCollaborator(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var collaborator models.Collaborator
	if err := decodeBody(r, &collaborator); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	collaborator.ID = existing.ID
	collaborator.OrganizationID = existing.OrganizationID

	if err := s.collaborators.Update(&collaborator); err != nil {
		respondFromError(w, err)
		return
	}

	if collaborator.Relations != nil {
		if err := s.collaborators.SetRelations(collaborator.ID, collaborator.Relations); err != nil {
			respondFromError(w, err)
			return
		}
	}

	s.publish(identity.OrganizationID, realtime.EventUserMessageUpdated, collaborator.ID, &collaborator)
	respondData(w, http.StatusOK, &collaborator)
}

// handleDeleteCollaborator soft-deletes a collaborator. With a replacement_id
// query parameter, the collaborator's split rows, session links, and
// relations are re-pointed to the replacement first.
func (s *Server) handleDeleteCollaborator(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedCollaborator(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	if replacementID := r.URL.Query().Get("replacement_id"); replacementID != "" {
		replacement, err := s.collaborators.Get(replacementID)
		if err != nil {
			respondFromError(w, err)
			return
		}
		if replacement.OrganizationID != identity.OrganizationID {
			respondFromError(w, shared.ErrNotFound)
			return
		}

		err = s.collaborators.DeleteWithReplacement(existing.ID, replacementID)
		if err != nil {
			respondFromError(w, err)
			return
		}
	} else if err := s.collaborators.Delete(existing.ID); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventUserMessageUpdated, existing.ID, nil)
	respondData(w, http.StatusOK, map[string]string{"id": existing.ID})
}

type mergeRequest struct {
	TargetID    string            `json:"target_id"`
	SourceIDs   []string          `json:"source_ids"`
	PreviewOnly bool              `json:"preview_only"`
	Resolved    map[string]string `json:"resolved_conflicts"`
}

// handleMergeCollaborators previews or applies a collaborator merge.
func (s *Server) handleMergeCollaborators(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	target, err := s.collaborators.Get(req.TargetID)
	if err != nil || target.OrganizationID != identity.OrganizationID {
		respondFromError(w, shared.ErrNotFound)
		return
	}

	if req.PreviewOnly {
		preview, err := s.collaborators.MergePreview(req.TargetID, req.SourceIDs)
		if err != nil {
			respondFromError(w, err)
			return
		}
		respondData(w, http.StatusOK, preview)
		return
	}

	result, err := s.collaborators.Merge(req.TargetID, req.SourceIDs, req.Resolved)
	if err != nil {
		respondFromError(w, err)
		return
	}

	s.logger.Info("collaborators merged",
		"target", req.TargetID, "sources", len(req.SourceIDs),
		"affected_songs", result.AffectedSongs, "affected_sessions", result.AffectedSessions)
	s.publish(identity.OrganizationID, realtime.EventUserMessageUpdated, req.TargetID, result)

	respondData(w, http.StatusOK, result)
}

// ownedCollaborator fetches the path collaborator and checks it belongs to
// the caller's organization. Records outside it read as not found.
func (s *Server) ownedCollaborator(r *http.Request) (*models.Collaborator, error) {
	identity, _ := IdentityFrom(r.Context())

	collaborator, err := s.collaborators.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if collaborator.OrganizationID != identity.OrganizationID {
		return nil, shared.ErrNotFound
	}
	return collaborator, nil
}

package server

import "net/http"

// handleListReminders returns the organization's derived catalog tasks.
func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	reminders, err := s.reminders.ForOrganization(identity.OrganizationID)
	if err != nil {
		respondFromError(w, err)
		return
	}

	respondData(w, http.StatusOK, reminders)
}

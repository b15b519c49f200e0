package http

import (
	"net/http"

	"finapi/internal/core"
)

type notificationListResponse struct {
	Items []core.Notification `json:"items"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	notifications, err := s.store.ListNotifications(r.Context(), claims.UserID, unreadOnly)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notificationListResponse{Items: notifications})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.store.MarkNotificationRead(r.Context(), claims.UserID, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.store.DeleteNotification(r.Context(), claims.UserID, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleCheckBudgets runs the budget sweep on demand and returns the
// notifications it created.
func (s *Server) handleCheckBudgets(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	created, err := s.evaluator.CheckBudgets(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if created == nil {
		created = []core.Notification{}
	}
	respondJSON(w, http.StatusOK, notificationListResponse{Items: created})
}

func (s *Server) handleCheckBalances(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	created, err := s.evaluator.CheckBalances(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if created == nil {
		created = []core.Notification{}
	}
	respondJSON(w, http.StatusOK, notificationListResponse{Items: created})
}

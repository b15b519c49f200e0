package http

import (
	"net/http"
	"time"

	"finapi/internal/core"
)

type categoryListResponse struct {
	Items []core.Category `json:"items"`
}

// categoryStat is one row of the statistics endpoint. Only categories
// with at least one transaction in the window appear.
type categoryStat struct {
	CategoryID       int64                `json:"category_id"`
	Name             string               `json:"name"`
	Kind             core.TransactionKind `json:"kind"`
	TransactionCount int                  `json:"transaction_count"`
	Total            core.Money           `json:"total"`
}

type categoryStatsResponse struct {
	From  time.Time      `json:"from"`
	To    time.Time      `json:"to"`
	Items []categoryStat `json:"items"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var kind *core.TransactionKind
	if k := core.TransactionKind(r.URL.Query().Get("kind")); core.ValidTransactionKind(k) {
		kind = &k
	}

	categories, err := s.store.ListCategories(r.Context(), claims.UserID, kind)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryListResponse{Items: categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var in struct {
		core.CategoryInput
		IsGlobal bool `json:"is_global"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}
	in.Name = core.Sanitize(in.Name)
	in.Description = core.Sanitize(in.Description)
	if err := core.ValidateCategoryInput(in.CategoryInput); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if in.IsGlobal && claims.Role != "admin" {
		respondError(w, http.StatusForbidden, "only administrators can create global categories", nil)
		return
	}

	category := core.Category{
		Name:          in.Name,
		Description:   in.Description,
		Kind:          in.Kind,
		Color:         in.Color,
		MonthlyBudget: in.MonthlyBudget,
		IsGlobal:      in.IsGlobal,
	}
	if !in.IsGlobal {
		category.UserID = claims.UserID
	}
	if err := s.store.CreateCategory(r.Context(), &category); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	category, err := s.store.CategoryByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	var in core.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}
	in.Name = core.Sanitize(in.Name)
	in.Description = core.Sanitize(in.Description)
	if err := core.ValidateCategoryInput(in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	category, err := s.store.CategoryByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	category.Name = in.Name
	category.Description = in.Description
	category.Kind = in.Kind
	category.Color = in.Color
	category.MonthlyBudget = in.MonthlyBudget
	category.UserID = claims.UserID
	if err := s.store.UpdateCategory(r.Context(), category); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.store.DeleteCategory(r.Context(), claims.UserID, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleCategoryStatistics reports per-category counts and totals over
// a date window, defaulting to the current month.
func (s *Server) handleCategoryStatistics(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	now := time.Now().UTC()
	window := core.MonthWindow(now.Year(), int(now.Month()))
	if from, to := queryDate(r, "from"), queryDate(r, "to"); from != nil && to != nil {
		if err := core.ValidateDateRange(*from, *to); err != nil {
			respondDomainError(w, r, err)
			return
		}
		window = core.Window{Start: core.DateOnly(*from), End: core.DateOnly(*to)}
	}

	txs, err := s.store.ListInWindow(r.Context(), claims.UserID, window)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	aggregates := core.AggregateByCategory(txs, window)
	items := make([]categoryStat, 0, len(aggregates))
	for _, a := range aggregates {
		items = append(items, categoryStat{
			CategoryID:       a.CategoryID,
			Name:             a.Name,
			Kind:             a.Kind,
			TransactionCount: a.Count,
			Total:            core.DisplayMoney(a.Amount),
		})
	}
	respondJSON(w, http.StatusOK, categoryStatsResponse{
		From:  window.Start,
		To:    window.End,
		Items: items,
	})
}

package http

import (
	"net/http"

	"finapi/internal/core"
	"finapi/internal/store"
)

func transactionFilterFromQuery(r *http.Request) store.TransactionFilter {
	f := store.TransactionFilter{
		From:       queryDate(r, "from"),
		To:         queryDate(r, "to"),
		CategoryID: queryInt64(r, "category_id"),
		AccountID:  queryInt64(r, "account_id"),
		MinAmount:  queryMoney(r, "min_amount"),
		MaxAmount:  queryMoney(r, "max_amount"),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
		Page:       queryInt(r, "page", 1),
		PageSize:   queryInt(r, "page_size", 50),
	}
	if k := core.TransactionKind(r.URL.Query().Get("kind")); core.ValidTransactionKind(k) {
		f.Kind = &k
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 500 {
		f.PageSize = 50
	}
	return f
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	page, err := s.store.ListTransactions(r.Context(), claims.UserID, transactionFilterFromQuery(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var in core.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), claims.UserID, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	tx, err := s.store.TransactionByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	var in core.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), claims.UserID, id, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), claims.UserID, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

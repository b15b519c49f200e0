package http

import (
	"net/http"
	"strings"
	"time"

	"finapi/internal/core"
	"finapi/internal/store"
)

// accountView is an account plus its derived balance.
type accountView struct {
	core.Account
	Balance core.Money `json:"balance"`
}

type accountListResponse struct {
	Items        []accountView `json:"items"`
	TotalBalance core.Money    `json:"total_balance"`
}

// accountBalanceDetail backs GET /api/accounts/{id}/balance.
type accountBalanceDetail struct {
	AccountID        int64      `json:"account_id"`
	Name             string     `json:"name"`
	InitialBalance   core.Money `json:"initial_balance"`
	CurrentBalance   core.Money `json:"current_balance"`
	TotalIncome      core.Money `json:"total_income"`
	TotalExpenses    core.Money `json:"total_expenses"`
	TransactionCount int        `json:"transaction_count"`
	LastActivityAt   *time.Time `json:"last_activity_at,omitempty"`
}

func accountFilterFromQuery(r *http.Request) store.AccountFilter {
	f := store.AccountFilter{
		Name:      strings.TrimSpace(r.URL.Query().Get("name")),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if k := core.AccountKind(r.URL.Query().Get("kind")); core.ValidAccountKind(k) {
		f.Kind = &k
	}
	f.MinBalance = queryMoney(r, "min_balance")
	f.MaxBalance = queryMoney(r, "max_balance")
	return f
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	filter := accountFilterFromQuery(r)

	accounts, err := s.store.ListAccounts(r.Context(), claims.UserID, filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	items := make([]accountView, 0, len(accounts))
	total := core.MoneyZero
	for _, a := range accounts {
		txs, err := s.store.ListForAccount(r.Context(), claims.UserID, a.ID)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		balance := core.Balance(a.InitialBalance, txs)
		// Balance bounds apply to the derived value, so they are
		// filtered here rather than in the store.
		if filter.MinBalance != nil && balance.Cmp(*filter.MinBalance) < 0 {
			continue
		}
		if filter.MaxBalance != nil && balance.Cmp(*filter.MaxBalance) > 0 {
			continue
		}
		items = append(items, accountView{Account: a, Balance: core.DisplayMoney(balance)})
		total = total.Add(balance)
	}

	respondJSON(w, http.StatusOK, accountListResponse{
		Items:        items,
		TotalBalance: core.DisplayMoney(total),
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var in core.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}
	in.Name = core.Sanitize(in.Name)
	in.Description = core.Sanitize(in.Description)
	if err := core.ValidateAccountInput(in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	account := core.Account{
		Name:           in.Name,
		Description:    in.Description,
		InitialBalance: in.InitialBalance,
		Kind:           in.Kind,
		AlertThreshold: in.AlertThreshold,
		UserID:         claims.UserID,
	}
	if err := s.store.CreateAccount(r.Context(), &account); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, accountView{Account: account, Balance: core.DisplayMoney(account.InitialBalance)})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	account, err := s.store.AccountByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	txs, err := s.store.ListForAccount(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accountView{
		Account: account,
		Balance: core.DisplayMoney(core.Balance(account.InitialBalance, txs)),
	})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	var in core.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}
	in.Name = core.Sanitize(in.Name)
	in.Description = core.Sanitize(in.Description)
	if err := core.ValidateAccountInput(in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	account, err := s.store.AccountByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	account.Name = in.Name
	account.Description = in.Description
	account.InitialBalance = in.InitialBalance
	account.Kind = in.Kind
	account.AlertThreshold = in.AlertThreshold
	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		respondDomainError(w, r, err)
		return
	}

	txs, err := s.store.ListForAccount(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accountView{
		Account: account,
		Balance: core.DisplayMoney(core.Balance(account.InitialBalance, txs)),
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.store.DeleteAccount(r.Context(), claims.UserID, id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	account, err := s.store.AccountByID(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	txs, err := s.store.ListForAccount(r.Context(), claims.UserID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	detail := accountBalanceDetail{
		AccountID:        account.ID,
		Name:             account.Name,
		InitialBalance:   core.DisplayMoney(account.InitialBalance),
		CurrentBalance:   core.DisplayMoney(core.Balance(account.InitialBalance, txs)),
		TotalIncome:      core.DisplayMoney(core.KindTotal(txs, core.Income)),
		TotalExpenses:    core.DisplayMoney(core.KindTotal(txs, core.Expense)),
		TransactionCount: len(txs),
	}
	for _, t := range txs {
		if detail.LastActivityAt == nil || t.Date.After(*detail.LastActivityAt) {
			d := t.Date
			detail.LastActivityAt = &d
		}
	}
	respondJSON(w, http.StatusOK, detail)
}

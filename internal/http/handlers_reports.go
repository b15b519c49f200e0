package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"finapi/internal/core"
	"finapi/internal/store"
)

type categoryReportResponse struct {
	From  time.Time                `json:"from"`
	To    time.Time                `json:"to"`
	Items []core.CategoryAggregate `json:"items"`
}

// buildMonthly gathers everything a monthly report needs from the
// store and assembles it.
func (s *Server) buildMonthly(r *http.Request, userID string, year, month int) (*core.MonthlyReport, error) {
	if err := core.ValidateReportPeriod(year, month); err != nil {
		return nil, err
	}

	window := core.MonthWindow(year, month)
	current, err := s.store.ListInWindow(r.Context(), userID, window)
	if err != nil {
		return nil, err
	}
	previous, err := s.store.ListInWindow(r.Context(), userID, window.Previous())
	if err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccounts(r.Context(), userID, store.AccountFilter{})
	if err != nil {
		return nil, err
	}
	accountTxs := make(map[int64][]core.Transaction, len(accounts))
	for _, a := range accounts {
		txs, err := s.store.ListForAccount(r.Context(), userID, a.ID)
		if err != nil {
			return nil, err
		}
		accountTxs[a.ID] = txs
	}

	return core.BuildMonthlyReport(year, month, current, previous, accounts, accountTxs)
}

// displayReport rounds the derived fields to two decimal places before
// they leave as JSON. Sums of validated amounts already carry at most
// two; averages and percentages come out of division with four.
func displayReport(rpt *core.MonthlyReport) *core.MonthlyReport {
	rpt.AverageDailyExpense = core.DisplayMoney(rpt.AverageDailyExpense)
	for i := range rpt.Categories {
		rpt.Categories[i].Percentage = rpt.Categories[i].Percentage.Round(2)
	}
	rpt.Comparison.ExpensePctChange = rpt.Comparison.ExpensePctChange.Round(2)
	rpt.Comparison.IncomePctChange = rpt.Comparison.IncomePctChange.Round(2)
	for i := range rpt.Comparison.TopSwings {
		rpt.Comparison.TopSwings[i].PctChange = rpt.Comparison.TopSwings[i].PctChange.Round(2)
	}
	return rpt
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	year, month := parseYearMonth(r)

	rpt, err := s.buildMonthly(r, claims.UserID, year, month)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, displayReport(rpt))
}

// handleCategoryReport aggregates per category over an explicit [from,
// to] window, optionally restricted to one kind.
func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	fromPtr, toPtr := queryDate(r, "from"), queryDate(r, "to")
	var from, to time.Time
	if fromPtr != nil {
		from = *fromPtr
	}
	if toPtr != nil {
		to = *toPtr
	}
	if err := core.ValidateDateRange(from, to); err != nil {
		respondDomainError(w, r, err)
		return
	}
	window := core.Window{Start: core.DateOnly(from), End: core.DateOnly(to)}

	txs, err := s.store.ListInWindow(r.Context(), claims.UserID, window)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var items []core.CategoryAggregate
	if k := core.TransactionKind(r.URL.Query().Get("kind")); core.ValidTransactionKind(k) {
		filtered := make([]core.Transaction, 0, len(txs))
		for _, t := range txs {
			if t.Kind == k {
				filtered = append(filtered, t)
			}
		}
		items = core.AggregateAll(filtered, window)
	} else {
		items = core.AggregateByCategory(txs, window)
	}
	if items == nil {
		items = []core.CategoryAggregate{}
	}
	for i := range items {
		items[i].Percentage = items[i].Percentage.Round(2)
	}

	respondJSON(w, http.StatusOK, categoryReportResponse{
		From:  window.Start,
		To:    window.End,
		Items: items,
	})
}

// handleExportTransactions streams the filtered listing as CSV, oldest
// first regardless of the default listing order.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	filter := transactionFilterFromQuery(r)
	filter.Page = 0
	filter.PageSize = 0
	filter.SortBy = "date"
	filter.SortOrder = "asc"

	page, err := s.store.ListTransactions(r.Context(), claims.UserID, filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	// Rendered fully before any header goes out, so an error can still
	// become a clean JSON response instead of a truncated CSV.
	var buf bytes.Buffer
	if err := s.exporter.Transactions(&buf, page.Items); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCSV(w, r, "transactions.csv", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, r *http.Request, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.WarnContext(r.Context(), "Failed to stream CSV export", "filename", filename, "error", err)
	}
}

func (s *Server) handleExportMonthly(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	year, month := parseYearMonth(r)

	rpt, err := s.buildMonthly(r, claims.UserID, year, month)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.MonthlyReport(&buf, rpt); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCSV(w, r, fmt.Sprintf("report-%04d-%02d.csv", year, month), buf.Bytes())
}

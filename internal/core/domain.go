package core

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	Expense TransactionKind = "expense"
	Income  TransactionKind = "income"
)

const (
	Checking   AccountKind = "checking"
	Savings    AccountKind = "savings"
	Investment AccountKind = "investment"
	OtherKind  AccountKind = "other"
)

const (
	BudgetExceeded     NotificationKind = "budget_exceeded"
	LowBalance         NotificationKind = "low_balance"
	PaymentReminder    NotificationKind = "payment_reminder"
	NewTransaction     NotificationKind = "new_transaction"
	MonthlyReportReady NotificationKind = "monthly_report"
)

type (
	TransactionKind  string
	AccountKind      string
	NotificationKind string

	// User owns every other entity except global categories.
	User struct {
		ID           string     `json:"id"`
		Email        string     `json:"email"`
		FirstName    string     `json:"first_name"`
		LastName     string     `json:"last_name"`
		PasswordHash string     `json:"-"`
		Role         string     `json:"role"`
		CreatedAt    time.Time  `json:"created_at"`
		LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	}

	// Account holds an initial balance; the current balance is always
	// derived from the transaction set, never stored.
	Account struct {
		ID             int64       `json:"id"`
		Name           string      `json:"name"`
		Description    string      `json:"description,omitempty"`
		InitialBalance Money       `json:"initial_balance"`
		Kind           AccountKind `json:"kind"`
		AlertThreshold Money       `json:"alert_threshold"`
		UserID         string      `json:"user_id"`
		CreatedAt      time.Time   `json:"created_at"`
	}

	// Category is personal when UserID is set, global (shared, read-only
	// to ordinary users) when it is empty.
	Category struct {
		ID            int64           `json:"id"`
		Name          string          `json:"name"`
		Description   string          `json:"description,omitempty"`
		Kind          TransactionKind `json:"kind"`
		Color         string          `json:"color"`
		MonthlyBudget Money           `json:"monthly_budget"`
		IsGlobal      bool            `json:"is_global"`
		UserID        string          `json:"user_id,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		Kind        TransactionKind `json:"kind"`
		UserID      string          `json:"user_id"`
		CategoryID  int64           `json:"category_id"`
		AccountID   *int64          `json:"account_id,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`

		// Denormalized names filled in by the store on reads.
		CategoryName string `json:"category_name,omitempty"`
		AccountName  string `json:"account_name,omitempty"`
	}

	Notification struct {
		ID        int64            `json:"id"`
		UserID    string           `json:"user_id"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		Kind      NotificationKind `json:"kind"`
		CreatedAt time.Time        `json:"created_at"`
		Read      bool             `json:"read"`
		Context   json.RawMessage  `json:"context,omitempty"`
	}

	// Window is an inclusive [Start, End] date range. Both bounds and the
	// probed dates are compared at day granularity in UTC.
	Window struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrReferenced     = errors.New("referenced by existing transactions")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrGlobalReadOnly = errors.New("global categories are read-only")
)

// ValidTransactionKind reports whether k is a known transaction kind.
func ValidTransactionKind(k TransactionKind) bool {
	return k == Expense || k == Income
}

// ValidAccountKind reports whether k is a known account kind.
func ValidAccountKind(k AccountKind) bool {
	switch k {
	case Checking, Savings, Investment, OtherKind:
		return true
	}
	return false
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days the window spans.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// MonthWindow returns the [first day, last day] window of a month.
func MonthWindow(year, month int) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}
}

// Previous returns the window of the month immediately before a month
// window.
func (w Window) Previous() Window {
	start := w.Start.AddDate(0, -1, 0)
	return Window{Start: start, End: w.Start.AddDate(0, 0, -1)}
}

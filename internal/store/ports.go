// Package store defines the persistence ports the rest of the
// application talks to. Two adapters implement them: the in-memory
// store in store/memory and the SQLite repository in internal/storage.
package store

import (
	"context"
	"time"

	"finapi/internal/core"
)

// TransactionFilter narrows and orders a transaction listing. Nil
// pointer fields mean "no constraint". Page is 1-based; PageSize 0
// means unpaged.
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *int64
	AccountID  *int64
	Kind       *core.TransactionKind
	MinAmount  *core.Money
	MaxAmount  *core.Money

	SortBy    string // "date" (default) or "amount"
	SortOrder string // "desc" (default) or "asc"
	Page      int
	PageSize  int
}

// TransactionPage is one page of a filtered listing plus the totals
// computed over the WHOLE filtered set, not just the page.
type TransactionPage struct {
	Items       []core.Transaction `json:"items"`
	TotalCount  int                `json:"total_count"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalAmount core.Money         `json:"total_amount"`
}

// AccountFilter narrows an account listing. Balance bounds are applied
// by the caller after deriving balances; they are carried here so the
// HTTP layer has a single place to parse into.
type AccountFilter struct {
	Name       string
	Kind       *core.AccountKind
	MinBalance *core.Money
	MaxBalance *core.Money

	SortBy    string // "name" (default) or "created_at"
	SortOrder string // "asc" (default) or "desc"
}

type (
	UserStore interface {
		CreateUser(ctx context.Context, u *core.User) error
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a *core.Account) error
		AccountByID(ctx context.Context, userID string, id int64) (core.Account, error)
		ListAccounts(ctx context.Context, userID string, f AccountFilter) ([]core.Account, error)
		UpdateAccount(ctx context.Context, a core.Account) error
		// DeleteAccount fails with core.ErrReferenced while transactions
		// still point at the account.
		DeleteAccount(ctx context.Context, userID string, id int64) error
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c *core.Category) error
		// CategoryByID resolves personal categories of userID and global
		// ones; other users' categories come back core.ErrNotFound.
		CategoryByID(ctx context.Context, userID string, id int64) (core.Category, error)
		// ListCategories returns the user's categories plus the globals.
		ListCategories(ctx context.Context, userID string, kind *core.TransactionKind) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, userID string, id int64) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t *core.Transaction) error
		TransactionByID(ctx context.Context, userID string, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string, f TransactionFilter) (TransactionPage, error)
		// ListForAccount returns every transaction booked against one
		// account, oldest first. Balance derivation depends on it.
		ListForAccount(ctx context.Context, userID string, accountID int64) ([]core.Transaction, error)
		// ListInWindow returns every transaction of the user dated inside
		// the window, unpaged.
		ListInWindow(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error)
		// SumByCategory totals the given kind for one category inside the
		// window.
		SumByCategory(ctx context.Context, userID string, categoryID int64, kind core.TransactionKind, w core.Window) (core.Money, error)
		// ActiveUserIDs returns the users with at least one transaction
		// dated on or after since. The worker's startup sweep uses it.
		ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, userID string, id int64) error
	}

	NotificationStore interface {
		CreateNotification(ctx context.Context, n *core.Notification) error
		ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]core.Notification, error)
		MarkNotificationRead(ctx context.Context, userID string, id int64) error
		DeleteNotification(ctx context.Context, userID string, id int64) error
	}

	// Store is the full persistence surface a backend must provide.
	Store interface {
		UserStore
		AccountStore
		CategoryStore
		TransactionStore
		NotificationStore
		Close() error
	}
)

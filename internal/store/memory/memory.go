// Package memory implements store.Store with mutex-guarded maps. It
// backs tests and the zero-setup development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"finapi/internal/core"
	"finapi/internal/store"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]core.User
	accounts      map[int64]core.Account
	categories    map[int64]core.Category
	transactions  map[int64]core.Transaction
	notifications map[int64]core.Notification

	nextAccount      int64
	nextCategory     int64
	nextTransaction  int64
	nextNotification int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store pre-seeded with the shared global
// categories every user sees.
func New() *Store {
	s := &Store{
		users:         map[string]core.User{},
		accounts:      map[int64]core.Account{},
		categories:    map[int64]core.Category{},
		transactions:  map[int64]core.Transaction{},
		notifications: map[int64]core.Notification{},
	}
	for _, c := range core.DefaultGlobalCategories() {
		s.nextCategory++
		c.ID = s.nextCategory
		c.CreatedAt = time.Now().UTC()
		s.categories[c.ID] = c
	}
	return s
}

func (s *Store) Close() error { return nil }

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return core.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

// --- accounts ---

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.accounts {
		if other.UserID == a.UserID && strings.EqualFold(other.Name, a.Name) {
			return core.ErrConflict
		}
	}
	s.nextAccount++
	a.ID = s.nextAccount
	a.CreatedAt = time.Now().UTC()
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) AccountByID(_ context.Context, userID string, id int64) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string, f store.AccountFilter) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0)
	for _, a := range s.accounts {
		if a.UserID != userID {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Kind != nil && a.Kind != *f.Kind {
			continue
		}
		out = append(out, a)
	}
	desc := f.SortOrder == "desc"
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch f.SortBy {
		case "created_at":
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		default:
			less = strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		if desc {
			return !less
		}
		return less
	})
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return core.ErrNotFound
	}
	for _, other := range s.accounts {
		if other.ID != a.ID && other.UserID == a.UserID && strings.EqualFold(other.Name, a.Name) {
			return core.ErrConflict
		}
	}
	a.CreatedAt = cur.CreatedAt
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	for _, t := range s.transactions {
		if t.AccountID != nil && *t.AccountID == id {
			return core.ErrReferenced
		}
	}
	delete(s.accounts, id)
	return nil
}

// --- categories ---

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.categories {
		if other.UserID == c.UserID && other.Kind == c.Kind && strings.EqualFold(other.Name, c.Name) {
			return core.ErrConflict
		}
	}
	s.nextCategory++
	c.ID = s.nextCategory
	c.CreatedAt = time.Now().UTC()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) CategoryByID(_ context.Context, userID string, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok || (!c.IsGlobal && c.UserID != userID) {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID string, kind *core.TransactionKind) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0)
	for _, c := range s.categories {
		if !c.IsGlobal && c.UserID != userID {
			continue
		}
		if kind != nil && c.Kind != *kind {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.categories[c.ID]
	if !ok || (!cur.IsGlobal && cur.UserID != c.UserID) {
		return core.ErrNotFound
	}
	if cur.IsGlobal {
		return core.ErrGlobalReadOnly
	}
	for _, other := range s.categories {
		if other.ID != c.ID && other.UserID == c.UserID && other.Kind == c.Kind && strings.EqualFold(other.Name, c.Name) {
			return core.ErrConflict
		}
	}
	c.CreatedAt = cur.CreatedAt
	c.IsGlobal = false
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || (!c.IsGlobal && c.UserID != userID) {
		return core.ErrNotFound
	}
	if c.IsGlobal {
		return core.ErrGlobalReadOnly
	}
	for _, t := range s.transactions {
		if t.CategoryID == id {
			return core.ErrReferenced
		}
	}
	delete(s.categories, id)
	return nil
}

// --- transactions ---

func (s *Store) CreateTransaction(_ context.Context, t *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTransaction++
	t.ID = s.nextTransaction
	t.CreatedAt = time.Now().UTC()
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) TransactionByID(_ context.Context, userID string, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.withNames(t), nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, f store.TransactionFilter) (store.TransactionPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]core.Transaction, 0)
	total := core.MoneyZero
	for _, t := range s.transactions {
		if t.UserID != userID || !matches(t, f) {
			continue
		}
		matched = append(matched, s.withNames(t))
		if t.Kind == core.Expense {
			total = total.Sub(t.Amount)
		} else {
			total = total.Add(t.Amount)
		}
	}

	desc := f.SortOrder != "asc"
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch f.SortBy {
		case "amount":
			less = matched[i].Amount.LessThan(matched[j].Amount)
		default:
			less = matched[i].Date.Before(matched[j].Date)
		}
		if matched[i].Date.Equal(matched[j].Date) && f.SortBy != "amount" {
			less = matched[i].ID < matched[j].ID
		}
		if desc {
			return !less
		}
		return less
	})

	page := store.TransactionPage{
		TotalCount:  len(matched),
		Page:        f.Page,
		PageSize:    f.PageSize,
		TotalAmount: total,
	}
	if f.PageSize <= 0 {
		page.Items = matched
		page.Page = 1
		return page, nil
	}
	if page.Page < 1 {
		page.Page = 1
	}
	lo := (page.Page - 1) * f.PageSize
	if lo >= len(matched) {
		page.Items = []core.Transaction{}
		return page, nil
	}
	hi := lo + f.PageSize
	if hi > len(matched) {
		hi = len(matched)
	}
	page.Items = matched[lo:hi]
	return page, nil
}

func matches(t core.Transaction, f store.TransactionFilter) bool {
	if f.From != nil && core.DateOnly(t.Date).Before(core.DateOnly(*f.From)) {
		return false
	}
	if f.To != nil && core.DateOnly(t.Date).After(core.DateOnly(*f.To)) {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.AccountID != nil && (t.AccountID == nil || *t.AccountID != *f.AccountID) {
		return false
	}
	if f.Kind != nil && t.Kind != *f.Kind {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

func (s *Store) ListForAccount(_ context.Context, userID string, accountID int64) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && t.AccountID != nil && *t.AccountID == accountID {
			out = append(out, s.withNames(t))
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) ListInWindow(_ context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && w.Contains(t.Date) {
			out = append(out, s.withNames(t))
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) SumByCategory(_ context.Context, userID string, categoryID int64, kind core.TransactionKind, w core.Window) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := core.MoneyZero
	for _, t := range s.transactions {
		if t.UserID == userID && t.CategoryID == categoryID && t.Kind == kind && w.Contains(t.Date) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (s *Store) ActiveUserIDs(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, t := range s.transactions {
		if core.DateOnly(t.Date).Before(core.DateOnly(since)) || seen[t.UserID] {
			continue
		}
		seen[t.UserID] = true
		out = append(out, t.UserID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return core.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.CategoryName, t.AccountName = "", ""
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

// --- notifications ---

func (s *Store) CreateNotification(_ context.Context, n *core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNotification++
	n.ID = s.nextNotification
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]core.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return core.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) DeleteNotification(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

// withNames fills the denormalized category and account names. Caller
// must hold at least the read lock.
func (s *Store) withNames(t core.Transaction) core.Transaction {
	if c, ok := s.categories[t.CategoryID]; ok {
		t.CategoryName = c.Name
	}
	if t.AccountID != nil {
		if a, ok := s.accounts[*t.AccountID]; ok {
			t.AccountName = a.Name
		}
	}
	return t
}

func sortByDate(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Date.Before(txs[j].Date)
	})
}

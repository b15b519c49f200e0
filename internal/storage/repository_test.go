package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finapi/internal/core"
	"finapi/internal/store"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addUser(t *testing.T, r *SQLiteRepository, id, email string) {
	t.Helper()
	u := core.User{ID: id, Email: email, FirstName: "Test", LastName: "User", PasswordHash: "x", Role: "user"}
	if err := r.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestMigrationsSeedGlobalCategories(t *testing.T) {
	r := newRepo(t)
	cats, err := r.ListCategories(context.Background(), "nobody", nil)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != len(core.DefaultGlobalCategories()) {
		t.Fatalf("expected %d seeded globals, got %d", len(core.DefaultGlobalCategories()), len(cats))
	}
}

func TestUserRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "ada@example.com")

	u, err := r.UserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("lookup by email (case-insensitive): %v", err)
	}
	if u.ID != "u1" || u.LastLoginAt != nil {
		t.Fatalf("unexpected user: %+v", u)
	}

	now := time.Now().UTC().Truncate(time.Second)
	u.LastLoginAt = &now
	if err := r.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, err = r.UserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(now) {
		t.Fatalf("last login not persisted: %v", u.LastLoginAt)
	}

	dup := core.User{ID: "u2", Email: "ada@example.com"}
	if err := r.CreateUser(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAccountCentsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "a@example.com")

	a := core.Account{
		Name:           "Livret",
		InitialBalance: decimal.RequireFromString("1234.56"),
		Kind:           core.Savings,
		AlertThreshold: decimal.RequireFromString("100"),
		UserID:         "u1",
	}
	if err := r.CreateAccount(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := r.AccountByID(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.InitialBalance.Equal(a.InitialBalance) || !got.AlertThreshold.Equal(a.AlertThreshold) {
		t.Fatalf("amounts mangled: %+v", got)
	}

	dup := core.Account{Name: "livret", Kind: core.Checking, UserID: "u1"}
	if err := r.CreateAccount(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCategoryUniqueIndex(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "a@example.com")
	addUser(t, r, "u2", "b@example.com")

	c := core.Category{Name: "Abonnements", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := core.Category{Name: "Abonnements", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("exact duplicate: expected conflict, got %v", err)
	}
	folded := core.Category{Name: "ABONNEMENTS", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &folded); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("case-folded duplicate: expected conflict, got %v", err)
	}
	otherKind := core.Category{Name: "Abonnements", Kind: core.Income, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &otherKind); err != nil {
		t.Fatalf("different kind: %v", err)
	}
	otherUser := core.Category{Name: "Abonnements", Kind: core.Expense, Color: "#112233", UserID: "u2"}
	if err := r.CreateCategory(ctx, &otherUser); err != nil {
		t.Fatalf("different owner: %v", err)
	}
	// Global rows live under user_id '' so a personal row may reuse a
	// seeded global name.
	shadow := core.Category{Name: "Alimentation", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &shadow); err != nil {
		t.Fatalf("shadow of global name: %v", err)
	}
}

func TestDeleteRestrictedByTransactions(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "a@example.com")

	a := core.Account{Name: "Main", Kind: core.Checking, UserID: "u1"}
	if err := r.CreateAccount(ctx, &a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	tx := core.Transaction{
		Amount: decimal.RequireFromString("9.99"), Description: "bread",
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Kind: core.Expense, UserID: "u1", CategoryID: c.ID, AccountID: &a.ID,
	}
	if err := r.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := r.DeleteCategory(ctx, "u1", c.ID); !errors.Is(err, core.ErrReferenced) {
		t.Fatalf("category delete: expected referenced, got %v", err)
	}
	if err := r.DeleteAccount(ctx, "u1", a.ID); !errors.Is(err, core.ErrReferenced) {
		t.Fatalf("account delete: expected referenced, got %v", err)
	}

	if err := r.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := r.DeleteCategory(ctx, "u1", c.ID); err != nil {
		t.Fatalf("delete category after transaction gone: %v", err)
	}
}

func TestListTransactionsPageAndTotals(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "a@example.com")

	exp := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &exp); err != nil {
		t.Fatalf("create category: %v", err)
	}
	inc := core.Category{Name: "Paye", Kind: core.Income, Color: "#445566", UserID: "u1"}
	if err := r.CreateCategory(ctx, &inc); err != nil {
		t.Fatalf("create category: %v", err)
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		tx := core.Transaction{
			Amount: decimal.RequireFromString("25"), Description: "spend",
			Date: base.AddDate(0, 0, i), Kind: core.Expense, UserID: "u1", CategoryID: exp.ID,
		}
		if err := r.CreateTransaction(ctx, &tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	salary := core.Transaction{
		Amount: decimal.RequireFromString("300"), Description: "salary",
		Date: base, Kind: core.Income, UserID: "u1", CategoryID: inc.ID,
	}
	if err := r.CreateTransaction(ctx, &salary); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	page, err := r.ListTransactions(ctx, "u1", store.TransactionFilter{Page: 1, PageSize: 3, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 5 || len(page.Items) != 3 {
		t.Fatalf("count=%d items=%d", page.TotalCount, len(page.Items))
	}
	// 300 income - 100 expenses over the whole filtered set.
	if !page.TotalAmount.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("total amount = %s, want 200", page.TotalAmount)
	}
	if page.Items[0].CategoryName == "" {
		t.Fatalf("join must fill category name")
	}

	min := decimal.RequireFromString("100")
	filtered, err := r.ListTransactions(ctx, "u1", store.TransactionFilter{MinAmount: &min})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if filtered.TotalCount != 1 || filtered.Items[0].Description != "salary" {
		t.Fatalf("amount filter broken: %+v", filtered)
	}
}

func TestSumByCategoryWindow(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "a@example.com")

	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := r.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	w := core.MonthWindow(2025, 3)
	for _, d := range []time.Time{w.Start, w.End, w.End.AddDate(0, 0, 1)} {
		tx := core.Transaction{
			Amount: decimal.RequireFromString("10.10"), Description: "x",
			Date: d, Kind: core.Expense, UserID: "u1", CategoryID: c.ID,
		}
		if err := r.CreateTransaction(ctx, &tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	sum, err := r.SumByCategory(ctx, "u1", c.ID, core.Expense, w)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("20.20")) {
		t.Fatalf("sum = %s, want 20.20", sum)
	}
}

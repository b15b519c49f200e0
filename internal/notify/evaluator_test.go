package notify

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finapi/internal/core"
	"finapi/internal/store/memory"
)

func setup(t *testing.T) (*memory.Store, *Evaluator) {
	t.Helper()
	s := memory.New()
	u := core.User{ID: "u1", Email: "a@example.com", Role: "user"}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return s, NewEvaluator(s)
}

func money(s string) core.Money { return decimal.RequireFromString(s) }

func TestCheckBudgets(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	over := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", MonthlyBudget: money("100"), UserID: "u1"}
	under := core.Category{Name: "Loisirs perso", Kind: core.Expense, Color: "#112233", MonthlyBudget: money("500"), UserID: "u1"}
	unbudgeted := core.Category{Name: "Divers", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	for _, c := range []*core.Category{&over, &under, &unbudgeted} {
		if err := s.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}

	now := time.Now().UTC()
	for _, spend := range []struct {
		cat    int64
		amount string
	}{
		{over.ID, "80"}, {over.ID, "45"}, // 125 > 100
		{under.ID, "40"},
		{unbudgeted.ID, "999"},
	} {
		tx := core.Transaction{
			Amount: money(spend.amount), Description: "x", Date: now,
			Kind: core.Expense, UserID: "u1", CategoryID: spend.cat,
		}
		if err := s.CreateTransaction(ctx, &tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	created, err := e.CheckBudgets(ctx, "u1")
	if err != nil {
		t.Fatalf("check budgets: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(created))
	}
	n := created[0]
	if n.Kind != core.BudgetExceeded {
		t.Fatalf("kind = %s", n.Kind)
	}
	want := `{"category_id":` + strconv.FormatInt(over.ID, 10) + `,"overage":"25"}`
	if string(n.Context) != want {
		t.Fatalf("context = %s, want %s", n.Context, want)
	}
}

func TestCheckBudgetsRefires(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", MonthlyBudget: money("10"), UserID: "u1"}
	if err := s.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	tx := core.Transaction{Amount: money("50"), Description: "x", Date: time.Now().UTC(),
		Kind: core.Expense, UserID: "u1", CategoryID: c.ID}
	if err := s.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	// The rule fires on every sweep while the condition holds.
	for i := 0; i < 2; i++ {
		if _, err := e.CheckBudgets(ctx, "u1"); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	all, _ := s.ListNotifications(ctx, "u1", false)
	if len(all) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(all))
	}
}

func TestCheckBalances(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	low := core.Account{Name: "Main", Kind: core.Checking, InitialBalance: money("100"), AlertThreshold: money("50"), UserID: "u1"}
	fine := core.Account{Name: "Savings", Kind: core.Savings, InitialBalance: money("1000"), AlertThreshold: money("50"), UserID: "u1"}
	unwatched := core.Account{Name: "Petty", Kind: core.OtherKind, InitialBalance: money("1"), UserID: "u1"}
	for _, a := range []*core.Account{&low, &fine, &unwatched} {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}
	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := s.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	// Drains "Main" down to 40, at/below its 50 threshold.
	tx := core.Transaction{Amount: money("60"), Description: "x", Date: time.Now().UTC(),
		Kind: core.Expense, UserID: "u1", CategoryID: c.ID, AccountID: &low.ID}
	if err := s.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	created, err := e.CheckBalances(ctx, "u1")
	if err != nil {
		t.Fatalf("check balances: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(created))
	}
	if created[0].Kind != core.LowBalance {
		t.Fatalf("kind = %s", created[0].Kind)
	}
}

func TestNotifyTransactionCreated(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := s.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	tx := core.Transaction{Amount: money("12.50"), Description: "bread", Date: time.Now().UTC(),
		Kind: core.Expense, UserID: "u1", CategoryID: c.ID}
	if err := s.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := e.NotifyTransactionCreated(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("notify: %v", err)
	}
	all, _ := s.ListNotifications(ctx, "u1", false)
	if len(all) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(all))
	}
	if all[0].Kind != core.NewTransaction {
		t.Fatalf("kind = %s", all[0].Kind)
	}
}

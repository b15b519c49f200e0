package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finapi/internal/amqp"
	"finapi/internal/core"
	"finapi/internal/store/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	fail   bool
}

func (p *capturePublisher) PublishTransactionEvent(_ context.Context, evt *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, evt)
	return nil
}

func setup(t *testing.T) (*memory.Store, int64, int64) {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	u := core.User{ID: "u1", Email: "a@example.com", Role: "user"}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	c := core.Category{Name: "Courses", Kind: core.Expense, Color: "#112233", UserID: "u1"}
	if err := s.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("create category: %v", err)
	}
	a := core.Account{Name: "Main", Kind: core.Checking, InitialBalance: decimal.RequireFromString("100"), UserID: "u1"}
	if err := s.CreateAccount(ctx, &a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return s, c.ID, a.ID
}

func input(catID int64, acctID *int64) core.TransactionInput {
	return core.TransactionInput{
		Amount:      decimal.RequireFromString("12.50"),
		Description: "bread",
		Date:        time.Now(),
		Kind:        core.Expense,
		CategoryID:  catID,
		AccountID:   acctID,
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	s, catID, acctID := setup(t)
	pub := &capturePublisher{}
	svc := NewTransactionService(s, pub)

	tx, err := svc.Create(context.Background(), "u1", input(catID, &acctID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == 0 || tx.CategoryName != "Courses" || tx.AccountName != "Main" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if len(pub.events) != 1 || pub.events[0].TransactionID != tx.ID {
		t.Fatalf("expected 1 event for tx %d, got %+v", tx.ID, pub.events)
	}
}

func TestCreateSurvivesBrokerFailure(t *testing.T) {
	s, catID, _ := setup(t)
	pub := &capturePublisher{fail: true}
	svc := NewTransactionService(s, pub)

	tx, err := svc.Create(context.Background(), "u1", input(catID, nil))
	if err != nil {
		t.Fatalf("create should not fail on publish error: %v", err)
	}
	if _, err := s.TransactionByID(context.Background(), "u1", tx.ID); err != nil {
		t.Fatalf("transaction not persisted: %v", err)
	}
}

func TestCreateRejectsForeignCategory(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	other := core.User{ID: "u2", Email: "b@example.com", Role: "user"}
	if err := s.CreateUser(ctx, &other); err != nil {
		t.Fatalf("create user: %v", err)
	}
	foreign := core.Category{Name: "Privé", Kind: core.Expense, Color: "#112233", UserID: "u2"}
	if err := s.CreateCategory(ctx, &foreign); err != nil {
		t.Fatalf("create category: %v", err)
	}

	svc := NewTransactionService(s, nil)
	_, err := svc.Create(ctx, "u1", input(foreign.ID, nil))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields[0].Field != "category_id" {
		t.Fatalf("expected category_id finding, got %+v", verr.Fields)
	}
}

func TestCreateRejectsKindMismatch(t *testing.T) {
	s, catID, _ := setup(t)
	svc := NewTransactionService(s, nil)

	in := input(catID, nil)
	in.Kind = core.Income // category is expense
	_, err := svc.Create(context.Background(), "u1", in)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields[0].Field != "kind" {
		t.Fatalf("expected kind finding, got %+v", verr.Fields)
	}
}

func TestCreateWithoutBrokerEvaluatesInline(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	budgeted := core.Category{Name: "Resto", Kind: core.Expense, Color: "#112233",
		MonthlyBudget: decimal.RequireFromString("10"), UserID: "u1"}
	if err := s.CreateCategory(ctx, &budgeted); err != nil {
		t.Fatalf("create category: %v", err)
	}

	svc := NewTransactionService(s, nil)
	in := input(budgeted.ID, nil)
	in.Amount = decimal.RequireFromString("25")
	if _, err := svc.Create(ctx, "u1", in); err != nil {
		t.Fatalf("create: %v", err)
	}

	ns, err := s.ListNotifications(ctx, "u1", false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Kind != core.BudgetExceeded {
		t.Fatalf("expected inline budget notification, got %+v", ns)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s, catID, _ := setup(t)
	svc := NewTransactionService(s, nil)
	ctx := context.Background()

	tx, err := svc.Create(ctx, "u1", input(catID, nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := input(catID, nil)
	in.Amount = decimal.RequireFromString("99.99")
	in.Description = "  cheese  "
	updated, err := svc.Update(ctx, "u1", tx.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Amount.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("amount = %s", updated.Amount)
	}
	if updated.Description != "cheese" {
		t.Fatalf("description not sanitized: %q", updated.Description)
	}

	if err := svc.Delete(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.TransactionByID(ctx, "u1", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

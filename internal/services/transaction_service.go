// Package services orchestrates multi-step operations that span the
// store, the message broker and the notification rules.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finapi/internal/amqp"
	"finapi/internal/core"
	"finapi/internal/notify"
	"finapi/internal/store"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, evt *amqp.TransactionEvent) error
}

// TransactionService validates references, persists transactions and
// hands the follow-up work to the broker. Without a broker the
// notification rules run inline instead, so alerts never silently
// disappear in single-process deployments.
type TransactionService struct {
	store     store.Store
	publisher EventPublisher
	evaluator *notify.Evaluator
}

func NewTransactionService(s store.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     s,
		publisher: publisher,
		evaluator: notify.NewEvaluator(s),
	}
}

// resolveRefs checks that the category is visible to the user, matches
// the transaction kind, and that any account belongs to the user.
// Broken references surface as validation findings, not as 404s.
func (s *TransactionService) resolveRefs(ctx context.Context, userID string, in core.TransactionInput) error {
	var findings []core.FieldError

	cat, err := s.store.CategoryByID(ctx, userID, in.CategoryID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		findings = append(findings, core.FieldError{Field: "category_id", Message: "does not exist"})
	case err != nil:
		return fmt.Errorf("resolve category: %w", err)
	case cat.Kind != in.Kind:
		findings = append(findings, core.FieldError{Field: "kind", Message: fmt.Sprintf("category %q is an %s category", cat.Name, cat.Kind)})
	}

	if in.AccountID != nil {
		_, err := s.store.AccountByID(ctx, userID, *in.AccountID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			findings = append(findings, core.FieldError{Field: "account_id", Message: "does not exist"})
		case err != nil:
			return fmt.Errorf("resolve account: %w", err)
		}
	}

	if len(findings) > 0 {
		return &core.ValidationError{Fields: findings}
	}
	return nil
}

// Create validates and persists a new transaction, then publishes its
// event. Publish failures are logged, never returned: the write
// already succeeded.
func (s *TransactionService) Create(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	if err := core.ValidateTransactionInput(in); err != nil {
		return core.Transaction{}, err
	}
	if err := s.resolveRefs(ctx, userID, in); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		Amount:      in.Amount,
		Description: core.Sanitize(in.Description),
		Date:        core.DateOnly(in.Date),
		Kind:        in.Kind,
		UserID:      userID,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
	}
	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.afterWrite(ctx, tx)
	return s.store.TransactionByID(ctx, userID, tx.ID)
}

// Update replaces a transaction's mutable fields.
func (s *TransactionService) Update(ctx context.Context, userID string, id int64, in core.TransactionInput) (core.Transaction, error) {
	if err := core.ValidateTransactionInput(in); err != nil {
		return core.Transaction{}, err
	}
	current, err := s.store.TransactionByID(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.resolveRefs(ctx, userID, in); err != nil {
		return core.Transaction{}, err
	}

	current.Amount = in.Amount
	current.Description = core.Sanitize(in.Description)
	current.Date = core.DateOnly(in.Date)
	current.Kind = in.Kind
	current.CategoryID = in.CategoryID
	current.AccountID = in.AccountID
	if err := s.store.UpdateTransaction(ctx, current); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.afterWrite(ctx, current)
	return s.store.TransactionByID(ctx, userID, id)
}

// Delete removes a transaction owned by the user.
func (s *TransactionService) Delete(ctx context.Context, userID string, id int64) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}

// afterWrite hands the transaction to the worker via the broker, or
// evaluates the rules inline when no broker is configured.
func (s *TransactionService) afterWrite(ctx context.Context, tx core.Transaction) {
	if s.publisher != nil {
		evt := amqp.NewTransactionEvent(tx.ID, tx.UserID, string(tx.Kind))
		if err := s.publisher.PublishTransactionEvent(ctx, evt); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"transaction_id", tx.ID, "user_id", tx.UserID, "error", err)
		}
		return
	}

	if _, err := s.evaluator.CheckBudgets(ctx, tx.UserID); err != nil {
		slog.WarnContext(ctx, "Inline budget sweep failed", "user_id", tx.UserID, "error", err)
	}
	if _, err := s.evaluator.CheckBalances(ctx, tx.UserID); err != nil {
		slog.WarnContext(ctx, "Inline balance sweep failed", "user_id", tx.UserID, "error", err)
	}
}

// Package notify evaluates the alerting rules and records the
// resulting notifications. Rules re-fire on every evaluation while
// the condition holds; deduplication is left to the reader.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"finapi/internal/core"
	"finapi/internal/store"
)

type Evaluator struct {
	store store.Store
}

func NewEvaluator(s store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// CheckBudgets compares the current month's expense total of every
// personal expense category with a budget against that budget. One
// broken category does not stop the sweep.
func (e *Evaluator) CheckBudgets(ctx context.Context, userID string) ([]core.Notification, error) {
	now := time.Now().UTC()
	window := core.MonthWindow(now.Year(), int(now.Month()))

	categories, err := e.store.ListCategories(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var created []core.Notification
	for _, cat := range categories {
		if cat.IsGlobal || cat.Kind != core.Expense || !cat.MonthlyBudget.IsPositive() {
			continue
		}
		spent, err := e.store.SumByCategory(ctx, userID, cat.ID, core.Expense, window)
		if err != nil {
			slog.WarnContext(ctx, "Budget check failed for category",
				"category_id", cat.ID, "user_id", userID, "error", err)
			continue
		}
		if !spent.GreaterThan(cat.MonthlyBudget) {
			continue
		}
		overage := spent.Sub(cat.MonthlyBudget)
		n := core.Notification{
			UserID: userID,
			Title:  "Budget exceeded",
			Message: fmt.Sprintf("Category %q is over budget: spent %s of %s this month",
				cat.Name, core.DisplayMoney(spent), core.DisplayMoney(cat.MonthlyBudget)),
			Kind:    core.BudgetExceeded,
			Context: mustJSON(map[string]any{"category_id": cat.ID, "overage": core.DisplayMoney(overage)}),
		}
		if err := e.store.CreateNotification(ctx, &n); err != nil {
			slog.WarnContext(ctx, "Failed to record budget notification",
				"category_id", cat.ID, "user_id", userID, "error", err)
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

// CheckBalances raises a low-balance notification for every account
// whose derived balance sits at or below its alert threshold.
func (e *Evaluator) CheckBalances(ctx context.Context, userID string) ([]core.Notification, error) {
	accounts, err := e.store.ListAccounts(ctx, userID, store.AccountFilter{})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var created []core.Notification
	for _, acct := range accounts {
		if !acct.AlertThreshold.IsPositive() {
			continue
		}
		txs, err := e.store.ListForAccount(ctx, userID, acct.ID)
		if err != nil {
			slog.WarnContext(ctx, "Balance check failed for account",
				"account_id", acct.ID, "user_id", userID, "error", err)
			continue
		}
		balance := core.Balance(acct.InitialBalance, txs)
		if balance.GreaterThan(acct.AlertThreshold) {
			continue
		}
		n := core.Notification{
			UserID: userID,
			Title:  "Low balance",
			Message: fmt.Sprintf("Account %q is at %s, at or below its %s alert threshold",
				acct.Name, core.DisplayMoney(balance), core.DisplayMoney(acct.AlertThreshold)),
			Kind:    core.LowBalance,
			Context: mustJSON(map[string]any{"account_id": acct.ID, "balance": core.DisplayMoney(balance)}),
		}
		if err := e.store.CreateNotification(ctx, &n); err != nil {
			slog.WarnContext(ctx, "Failed to record balance notification",
				"account_id", acct.ID, "user_id", userID, "error", err)
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

// NotifyTransactionCreated records the informational notification the
// worker produces for every consumed transaction event, then runs the
// rule sweeps so alerts follow the write that triggered them.
func (e *Evaluator) NotifyTransactionCreated(ctx context.Context, userID string, transactionID int64) error {
	tx, err := e.store.TransactionByID(ctx, userID, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	n := core.Notification{
		UserID: userID,
		Title:  "Transaction recorded",
		Message: fmt.Sprintf("%s of %s in %q",
			tx.Kind, core.DisplayMoney(tx.Amount), tx.CategoryName),
		Kind:    core.NewTransaction,
		Context: mustJSON(map[string]any{"transaction_id": tx.ID}),
	}
	if err := e.store.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	if _, err := e.CheckBudgets(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Budget sweep after transaction failed", "user_id", userID, "error", err)
	}
	if _, err := e.CheckBalances(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Balance sweep after transaction failed", "user_id", userID, "error", err)
	}
	return nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

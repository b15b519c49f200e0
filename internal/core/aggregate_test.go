package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func catTx(catID int64, name string, kind TransactionKind, amount string, date time.Time) Transaction {
	t := tx(kind, amount, date)
	t.CategoryID = catID
	t.CategoryName = name
	return t
}

func TestAggregateByCategory(t *testing.T) {
	w := MonthWindow(2025, 4)
	in := w.Start.AddDate(0, 0, 5)
	out := w.End.AddDate(0, 0, 1)

	txs := []Transaction{
		catTx(1, "Food", Expense, "60", in),
		catTx(1, "Food", Expense, "40", in),
		catTx(2, "Rent", Expense, "100", in),
		catTx(3, "Salary", Income, "1000", in),
		catTx(2, "Rent", Expense, "999", out), // outside window, ignored
	}

	got := AggregateByCategory(txs, w)
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(got))
	}

	// Sorted by amount descending; equal amounts fall back to name.
	if got[0].Name != "Salary" || got[1].Name != "Food" || got[2].Name != "Rent" {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}

	for _, g := range got {
		switch g.Name {
		case "Food":
			if !g.Amount.Equal(dec("100")) || g.Count != 2 {
				t.Fatalf("food: amount=%s count=%d", g.Amount, g.Count)
			}
			// 100 of 200 total expenses
			if !g.Percentage.Equal(dec("50")) {
				t.Fatalf("food percentage = %s", g.Percentage)
			}
			if !g.Average.Equal(dec("50")) {
				t.Fatalf("food average = %s", g.Average)
			}
		case "Rent":
			if !g.Percentage.Equal(dec("50")) {
				t.Fatalf("rent percentage = %s", g.Percentage)
			}
		case "Salary":
			// Income percentage is relative to income total, not expenses.
			if !g.Percentage.Equal(dec("100")) {
				t.Fatalf("salary percentage = %s", g.Percentage)
			}
		}
	}
}

func TestAggregatePercentagesSumAtMost100(t *testing.T) {
	w := MonthWindow(2025, 4)
	day := w.Start
	txs := []Transaction{
		catTx(1, "A", Expense, "33.33", day),
		catTx(2, "B", Expense, "33.33", day),
		catTx(3, "C", Expense, "33.34", day),
	}
	got := AggregateByCategory(txs, w)
	sum := decimal.Zero
	for _, g := range got {
		sum = sum.Add(g.Percentage)
	}
	if sum.Sub(dec("100")).Abs().GreaterThan(dec("0.01")) {
		t.Fatalf("percentages sum to %s", sum)
	}
}

func TestAggregateEmptyWindow(t *testing.T) {
	w := MonthWindow(2025, 4)
	if got := AggregateByCategory(nil, w); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
}

func TestAggregateZeroKindTotal(t *testing.T) {
	w := MonthWindow(2025, 4)
	// Only income in the window: the expense kind-total is zero and no
	// group may report NaN-ish percentages.
	txs := []Transaction{catTx(3, "Salary", Income, "100", w.Start)}
	got := AggregateByCategory(txs, w)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	if !got[0].Percentage.Equal(dec("100")) {
		t.Fatalf("percentage = %s", got[0].Percentage)
	}
}

func TestSummarizeAccount(t *testing.T) {
	w := MonthWindow(2025, 5)
	acct := Account{ID: 7, Name: "Main", Kind: Checking, InitialBalance: dec("100")}

	txs := []Transaction{
		tx(Income, "50", w.Start.AddDate(0, 0, -3)),  // before window
		tx(Expense, "20", w.Start.AddDate(0, 0, -1)), // before window
		tx(Income, "200", w.Start.AddDate(0, 0, 2)),  // inside
		tx(Expense, "80", w.Start.AddDate(0, 0, 10)), // inside
		tx(Income, "999", w.End.AddDate(0, 0, 1)),    // after window
	}

	s := SummarizeAccount(acct, txs, w)
	if !s.Opening.Equal(dec("130")) {
		t.Fatalf("opening = %s, want 130", s.Opening)
	}
	if !s.Closing.Equal(dec("250")) {
		t.Fatalf("closing = %s, want 250", s.Closing)
	}
	if !s.Inflow.Equal(dec("200")) || !s.Outflow.Equal(dec("80")) {
		t.Fatalf("inflow=%s outflow=%s", s.Inflow, s.Outflow)
	}
}

func TestWindowHelpers(t *testing.T) {
	w := MonthWindow(2025, 2)
	if w.Days() != 28 {
		t.Fatalf("feb 2025 has %d days?", w.Days())
	}
	if !w.Contains(time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("end day should be inclusive")
	}
	if w.Contains(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("march must be outside february")
	}

	prev := w.Previous()
	if prev.Start.Month() != time.January || prev.End.Day() != 31 {
		t.Fatalf("previous window wrong: %v", prev)
	}

	leap := MonthWindow(2024, 2)
	if leap.Days() != 29 {
		t.Fatalf("feb 2024 has %d days?", leap.Days())
	}
}

package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAggregate is one (category, kind) group of a window
// aggregation. Percentage is the group's share of the window total for
// its kind: expenses relative to total expenses, income relative to
// total income. It is zero, not NaN, when the kind total is zero.
type CategoryAggregate struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color,omitempty"`
	Kind       TransactionKind `json:"kind"`
	Amount     Money           `json:"amount"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
	Average    Money           `json:"average_per_transaction"`
}

// AccountSummary describes one account over a window. Opening counts
// all transactions strictly before the window, closing counts all
// transactions up to and including its end.
type AccountSummary struct {
	AccountID int64       `json:"account_id"`
	Name      string      `json:"name"`
	Kind      AccountKind `json:"kind"`
	Opening   Money       `json:"opening_balance"`
	Closing   Money       `json:"closing_balance"`
	Inflow    Money       `json:"inflow"`
	Outflow   Money       `json:"outflow"`
}

// AggregateByCategory groups the transactions inside a window by
// (category, kind) and computes sum, count and kind-relative share.
// Categories with no transactions in the window are omitted. Results
// are ordered by amount descending, with name then category id as
// tie-breaks so the order is deterministic.
func AggregateByCategory(txs []Transaction, w Window) []CategoryAggregate {
	type key struct {
		categoryID int64
		kind       TransactionKind
	}

	groups := make(map[key]*CategoryAggregate)
	expenseTotal := MoneyZero
	incomeTotal := MoneyZero

	for _, t := range txs {
		if !w.Contains(t.Date) {
			continue
		}
		switch t.Kind {
		case Expense:
			expenseTotal = expenseTotal.Add(t.Amount)
		case Income:
			incomeTotal = incomeTotal.Add(t.Amount)
		}
		k := key{t.CategoryID, t.Kind}
		g, ok := groups[k]
		if !ok {
			g = &CategoryAggregate{
				CategoryID: t.CategoryID,
				Name:       t.CategoryName,
				Kind:       t.Kind,
				Amount:     MoneyZero,
			}
			groups[k] = g
		}
		g.Amount = g.Amount.Add(t.Amount)
		g.Count++
	}

	out := make([]CategoryAggregate, 0, len(groups))
	for _, g := range groups {
		total := expenseTotal
		if g.Kind == Income {
			total = incomeTotal
		}
		g.Percentage = Percentage(g.Amount, total)
		g.Average = g.Amount.DivRound(decimal.NewFromInt(int64(g.Count)), 2)
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// AggregateAll groups like AggregateByCategory but computes each
// group's share of the combined window total instead of the per-kind
// total. This backs the category report endpoint, which may already be
// filtered to one kind.
func AggregateAll(txs []Transaction, w Window) []CategoryAggregate {
	in := make([]Transaction, 0, len(txs))
	total := MoneyZero
	for _, t := range txs {
		if !w.Contains(t.Date) {
			continue
		}
		in = append(in, t)
		total = total.Add(t.Amount)
	}

	out := AggregateByCategory(in, w)
	for i := range out {
		out[i].Percentage = Percentage(out[i].Amount, total)
	}
	return out
}

// SummarizeAccount computes one account's window summary from its full
// transaction history.
func SummarizeAccount(a Account, txs []Transaction, w Window) AccountSummary {
	s := AccountSummary{
		AccountID: a.ID,
		Name:      a.Name,
		Kind:      a.Kind,
		Opening:   a.InitialBalance,
		Closing:   a.InitialBalance,
		Inflow:    MoneyZero,
		Outflow:   MoneyZero,
	}
	for _, t := range txs {
		d := DateOnly(t.Date)
		signed := t.Amount
		if t.Kind == Expense {
			signed = t.Amount.Neg()
		}
		if d.Before(w.Start) {
			s.Opening = s.Opening.Add(signed)
		}
		if !d.After(w.End) {
			s.Closing = s.Closing.Add(signed)
		}
		if w.Contains(t.Date) {
			if t.Kind == Income {
				s.Inflow = s.Inflow.Add(t.Amount)
			} else {
				s.Outflow = s.Outflow.Add(t.Amount)
			}
		}
	}
	return s
}

package core

// SignedTotal sums a transaction set with income counted positive and
// expenses negative.
func SignedTotal(txs []Transaction) Money {
	total := MoneyZero
	for _, t := range txs {
		switch t.Kind {
		case Income:
			total = total.Add(t.Amount)
		case Expense:
			total = total.Sub(t.Amount)
		}
	}
	return total
}

// Balance derives an account's current balance from its initial balance
// and its full transaction set:
//
//	initial + Σ(income) − Σ(expense)
//
// The result is independent of transaction order. An account with no
// transactions keeps its initial balance. Balances are never persisted;
// every read recomputes to rule out drift.
func Balance(initial Money, txs []Transaction) Money {
	return initial.Add(SignedTotal(txs))
}

// KindTotal sums the amounts of transactions of one kind.
func KindTotal(txs []Transaction, kind TransactionKind) Money {
	total := MoneyZero
	for _, t := range txs {
		if t.Kind == kind {
			total = total.Add(t.Amount)
		}
	}
	return total
}

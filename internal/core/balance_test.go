package core

import (
	"math/rand"
	"testing"
	"time"
)

func tx(kind TransactionKind, amount string, date time.Time) Transaction {
	return Transaction{Amount: dec(amount), Kind: kind, Date: date, CategoryID: 1, Description: "t"}
}

func TestBalance(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		initial string
		txs     []Transaction
		want    string
	}{
		{"no transactions", "250.00", nil, "250.00"},
		{
			"income and expense",
			"100.00",
			[]Transaction{tx(Income, "50", day), tx(Expense, "30", day)},
			"120.00",
		},
		{
			"negative result",
			"10.00",
			[]Transaction{tx(Expense, "25.50", day)},
			"-15.50",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Balance(dec(tc.initial), tc.txs)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("Balance = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBalanceOrderIndependent(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx(Income, "10.10", day),
		tx(Expense, "3.33", day),
		tx(Income, "0.01", day),
		tx(Expense, "7.77", day),
		tx(Income, "250", day),
	}
	want := Balance(dec("42"), txs)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Balance(dec("42"), shuffled); !got.Equal(want) {
			t.Fatalf("balance depends on order: %s vs %s", got, want)
		}
	}
}

func TestKindTotal(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx(Expense, "5", day),
		tx(Income, "20", day),
		tx(Expense, "2.50", day),
	}
	if got := KindTotal(txs, Expense); !got.Equal(dec("7.50")) {
		t.Fatalf("expense total = %s", got)
	}
	if got := KindTotal(txs, Income); !got.Equal(dec("20")) {
		t.Fatalf("income total = %s", got)
	}
}

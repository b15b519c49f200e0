package export

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finapi/internal/core"
)

func sampleTxs() []core.Transaction {
	acct := "Main"
	return []core.Transaction{
		{
			Amount:       decimal.RequireFromString("12.5"),
			Description:  "bread",
			Date:         time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
			Kind:         core.Expense,
			CategoryName: "Alimentation",
			AccountName:  acct,
		},
		{
			Amount:       decimal.RequireFromString("1200"),
			Description:  "salary",
			Date:         time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
			Kind:         core.Income,
			CategoryName: "Salaire",
		},
	}
}

func TestTransactionsFrench(t *testing.T) {
	var sb strings.Builder
	if err := NewExporter(LocaleFR).Transactions(&sb, sampleTxs()); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "date;description;amount;kind;category;account" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "07/03/2025;bread;12,50;expense;Alimentation;Main" {
		t.Fatalf("row = %q", lines[1])
	}
	// No account booked: trailing field stays empty.
	if lines[2] != "28/03/2025;salary;1200,00;income;Salaire;" {
		t.Fatalf("row = %q", lines[2])
	}
}

func TestTransactionsEnglish(t *testing.T) {
	var sb strings.Builder
	if err := NewExporter(LocaleEN).Transactions(&sb, sampleTxs()); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if lines[1] != "2025-03-07,bread,12.50,expense,Alimentation,Main" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestMonthlyReportSections(t *testing.T) {
	rpt := &core.MonthlyReport{
		Year: 2025, Month: 3,
		TotalExpenses:       decimal.RequireFromString("12.5"),
		TotalIncome:         decimal.RequireFromString("1200"),
		Net:                 decimal.RequireFromString("1187.5"),
		AverageDailyExpense: decimal.RequireFromString("0.4032"),
		Categories: []core.CategoryAggregate{
			{Name: "Alimentation", Kind: core.Expense, Amount: decimal.RequireFromString("12.5"),
				Percentage: decimal.RequireFromString("100"), Count: 1},
		},
		Days: []core.DailyBreakdown{
			{Date: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
				Expenses: decimal.RequireFromString("12.5"), Income: core.MoneyZero,
				Net: decimal.RequireFromString("-12.5"), Count: 1},
		},
	}

	var sb strings.Builder
	if err := NewExporter(LocaleFR).MonthlyReport(&sb, rpt); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "2025;3;12,50;1200,00;1187,50;0,40") {
		t.Fatalf("totals row missing:\n%s", out)
	}
	if !strings.Contains(out, "Alimentation;expense;12,50;100,00;1") {
		t.Fatalf("category row missing:\n%s", out)
	}
	if !strings.Contains(out, "07/03/2025;12,50;0,00;-12,50;1") {
		t.Fatalf("daily row missing:\n%s", out)
	}
	// Sections separated by blank lines.
	if strings.Count(out, "\n\n") != 2 {
		t.Fatalf("expected 2 section breaks:\n%s", out)
	}
}

// Package export renders transactions and monthly reports as CSV.
// Output follows a locale: the French default writes semicolons,
// decimal commas and dd/mm/yyyy dates so the files open cleanly in a
// French spreadsheet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"finapi/internal/core"
)

type Locale struct {
	Name         string
	Separator    rune
	DecimalComma bool
	DateLayout   string
}

var (
	LocaleFR = Locale{Name: "fr", Separator: ';', DecimalComma: true, DateLayout: "02/01/2006"}
	LocaleEN = Locale{Name: "en", Separator: ',', DecimalComma: false, DateLayout: "2006-01-02"}
)

// ParseLocale maps a config value ("en", "en-US", "fr", "fr-FR") onto
// a locale, defaulting to French.
func ParseLocale(name string) Locale {
	if strings.HasPrefix(strings.ToLower(name), "en") {
		return LocaleEN
	}
	return LocaleFR
}

type Exporter struct {
	Locale Locale
}

func NewExporter(locale Locale) *Exporter {
	return &Exporter{Locale: locale}
}

func (e *Exporter) amount(m core.Money) string {
	s := core.DisplayMoney(m).StringFixed(2)
	if e.Locale.DecimalComma {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// Transactions writes one row per transaction, oldest first if the
// caller sorted them that way; order is preserved.
func (e *Exporter) Transactions(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	cw.Comma = e.Locale.Separator

	if err := cw.Write([]string{"date", "description", "amount", "kind", "category", "account"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		row := []string{
			t.Date.Format(e.Locale.DateLayout),
			t.Description,
			e.amount(t.Amount),
			string(t.Kind),
			t.CategoryName,
			t.AccountName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MonthlyReport writes the report as stacked sections separated by
// blank lines: totals, category breakdown, daily breakdown.
func (e *Exporter) MonthlyReport(w io.Writer, rpt *core.MonthlyReport) error {
	cw := csv.NewWriter(w)
	cw.Comma = e.Locale.Separator

	rows := [][]string{
		{"year", "month", "total_expenses", "total_income", "net", "average_daily_expense"},
		{
			fmt.Sprintf("%d", rpt.Year),
			fmt.Sprintf("%d", rpt.Month),
			e.amount(rpt.TotalExpenses),
			e.amount(rpt.TotalIncome),
			e.amount(rpt.Net),
			e.amount(rpt.AverageDailyExpense),
		},
		{},
		{"category", "kind", "amount", "percentage", "count"},
	}
	for _, c := range rpt.Categories {
		rows = append(rows, []string{
			c.Name,
			string(c.Kind),
			e.amount(c.Amount),
			e.amount(c.Percentage),
			fmt.Sprintf("%d", c.Count),
		})
	}
	rows = append(rows, []string{}, []string{"date", "expenses", "income", "net", "count"})
	for _, d := range rpt.Days {
		rows = append(rows, []string{
			d.Date.Format(e.Locale.DateLayout),
			e.amount(d.Expenses),
			e.amount(d.Income),
			e.amount(d.Net),
			fmt.Sprintf("%d", d.Count),
		})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

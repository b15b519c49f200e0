package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MinReportYear is the earliest year a report may be requested for.
const MinReportYear = 2000

// DailyBreakdown is the activity of one calendar date. Only dates with
// at least one transaction appear in a report.
type DailyBreakdown struct {
	Date     time.Time `json:"date"`
	Expenses Money     `json:"expenses"`
	Income   Money     `json:"income"`
	Net      Money     `json:"net"`
	Count    int       `json:"count"`
}

// CategorySwing is one category's month-over-month movement.
type CategorySwing struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Current    Money           `json:"current_amount"`
	Previous   Money           `json:"previous_amount"`
	Delta      Money           `json:"delta"`
	PctChange  decimal.Decimal `json:"percent_change"`
}

// Comparison relates a month to the month before it.
type Comparison struct {
	ExpenseDelta     Money           `json:"expense_delta"`
	IncomeDelta      Money           `json:"income_delta"`
	ExpensePctChange decimal.Decimal `json:"expense_percent_change"`
	IncomePctChange  decimal.Decimal `json:"income_percent_change"`
	TopSwings        []CategorySwing `json:"top_category_swings"`
}

// MonthlyReport is the full monthly view: totals, per-category and
// per-account breakdowns, per-day activity and the previous-month
// comparison.
type MonthlyReport struct {
	Year                int                 `json:"year"`
	Month               int                 `json:"month"`
	TotalExpenses       Money               `json:"total_expenses"`
	TotalIncome         Money               `json:"total_income"`
	Net                 Money               `json:"net"`
	AverageDailyExpense Money               `json:"average_daily_expense"`
	Categories          []CategoryAggregate `json:"categories"`
	Accounts            []AccountSummary    `json:"accounts"`
	Days                []DailyBreakdown    `json:"days"`
	Comparison          Comparison          `json:"previous_month_comparison"`
}

// ValidateReportPeriod rejects out-of-range report coordinates before
// any computation happens; nothing is ever clamped.
func ValidateReportPeriod(year, month int) error {
	var fields []FieldError
	if month < 1 || month > 12 {
		fields = append(fields, FieldError{Field: "month", Message: "month must be between 1 and 12"})
	}
	if year < MinReportYear || year > time.Now().Year()+1 {
		fields = append(fields, FieldError{Field: "year", Message: "year is out of range"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// BuildMonthlyReport assembles the report for (year, month) from the
// month's transactions, the previous month's transactions, and the
// per-account transaction histories. current and previous must already
// be scoped to the caller; they are re-filtered by window here so
// over-fetching is harmless.
func BuildMonthlyReport(year, month int, current, previous []Transaction, accounts []Account, accountTxs map[int64][]Transaction) (*MonthlyReport, error) {
	if err := ValidateReportPeriod(year, month); err != nil {
		return nil, err
	}

	window := MonthWindow(year, month)
	prevWindow := window.Previous()

	rpt := &MonthlyReport{
		Year:          year,
		Month:         month,
		TotalExpenses: MoneyZero,
		TotalIncome:   MoneyZero,
	}

	var inWindow []Transaction
	byDay := make(map[time.Time]*DailyBreakdown)
	for _, t := range current {
		if !window.Contains(t.Date) {
			continue
		}
		inWindow = append(inWindow, t)
		day := DateOnly(t.Date)
		d, ok := byDay[day]
		if !ok {
			d = &DailyBreakdown{Date: day, Expenses: MoneyZero, Income: MoneyZero}
			byDay[day] = d
		}
		d.Count++
		switch t.Kind {
		case Expense:
			rpt.TotalExpenses = rpt.TotalExpenses.Add(t.Amount)
			d.Expenses = d.Expenses.Add(t.Amount)
		case Income:
			rpt.TotalIncome = rpt.TotalIncome.Add(t.Amount)
			d.Income = d.Income.Add(t.Amount)
		}
	}

	rpt.Net = rpt.TotalIncome.Sub(rpt.TotalExpenses)
	rpt.AverageDailyExpense = rpt.TotalExpenses.DivRound(decimal.NewFromInt(int64(window.Days())), 4)
	rpt.Categories = AggregateByCategory(inWindow, window)

	rpt.Days = make([]DailyBreakdown, 0, len(byDay))
	for _, d := range byDay {
		d.Net = d.Income.Sub(d.Expenses)
		rpt.Days = append(rpt.Days, *d)
	}
	sort.Slice(rpt.Days, func(i, j int) bool { return rpt.Days[i].Date.Before(rpt.Days[j].Date) })

	rpt.Accounts = make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		rpt.Accounts = append(rpt.Accounts, SummarizeAccount(a, accountTxs[a.ID], window))
	}

	rpt.Comparison = buildComparison(rpt, previous, prevWindow)
	return rpt, nil
}

func buildComparison(rpt *MonthlyReport, previous []Transaction, prevWindow Window) Comparison {
	var prevInWindow []Transaction
	prevExpenses := MoneyZero
	prevIncome := MoneyZero
	for _, t := range previous {
		if !prevWindow.Contains(t.Date) {
			continue
		}
		prevInWindow = append(prevInWindow, t)
		switch t.Kind {
		case Expense:
			prevExpenses = prevExpenses.Add(t.Amount)
		case Income:
			prevIncome = prevIncome.Add(t.Amount)
		}
	}

	cmp := Comparison{
		ExpenseDelta:     rpt.TotalExpenses.Sub(prevExpenses),
		IncomeDelta:      rpt.TotalIncome.Sub(prevIncome),
		ExpensePctChange: PercentChange(rpt.TotalExpenses, prevExpenses),
		IncomePctChange:  PercentChange(rpt.TotalIncome, prevIncome),
	}

	// Previous-month amount per (category, kind), keyed the same way the
	// current-month aggregation groups.
	type key struct {
		categoryID int64
		kind       TransactionKind
	}
	prevAmounts := make(map[key]Money)
	for _, t := range prevInWindow {
		k := key{t.CategoryID, t.Kind}
		prevAmounts[k] = prevAmounts[k].Add(t.Amount)
	}

	swings := make([]CategorySwing, 0, len(rpt.Categories))
	for _, c := range rpt.Categories {
		prev := prevAmounts[key{c.CategoryID, c.Kind}]
		swings = append(swings, CategorySwing{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Current:    c.Amount,
			Previous:   prev,
			Delta:      c.Amount.Sub(prev),
			PctChange:  PercentChange(c.Amount, prev),
		})
	}

	// Top five by absolute delta, descending. Name breaks ties so the
	// ranking is stable across runs.
	sort.Slice(swings, func(i, j int) bool {
		if c := swings[i].Delta.Abs().Cmp(swings[j].Delta.Abs()); c != 0 {
			return c > 0
		}
		return swings[i].Name < swings[j].Name
	})
	if len(swings) > 5 {
		swings = swings[:5]
	}
	cmp.TopSwings = swings
	return cmp
}

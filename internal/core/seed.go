package core

import "github.com/shopspring/decimal"

// DefaultGlobalCategories returns the shared categories every backend
// seeds on first start. They belong to no user and cannot be edited
// through the API.
func DefaultGlobalCategories() []Category {
	global := func(name, color string, kind TransactionKind) Category {
		return Category{
			Name:          name,
			Kind:          kind,
			Color:         color,
			MonthlyBudget: decimal.Zero,
			IsGlobal:      true,
		}
	}
	return []Category{
		global("Alimentation", "#4CAF50", Expense),
		global("Transport", "#2196F3", Expense),
		global("Logement", "#FF9800", Expense),
		global("Loisirs", "#9C27B0", Expense),
		global("Sante", "#F44336", Expense),
		global("Salaire", "#8BC34A", Income),
		global("Autres revenus", "#00BCD4", Income),
	}
}

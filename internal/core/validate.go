package core

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
	minPasswordLength    = 8
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Substrings that are never legitimate in a name or description. The
// comparison is case-insensitive; the SQL keywords include a trailing
// space so ordinary words like "selection" pass.
var dangerousPatterns = []string{
	"<script", "</script", "javascript:", "vbscript:",
	"onload=", "onerror=",
	"select ", "insert ", "update ", "delete ",
}

// FieldError is one validation finding.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every finding for an input so callers can
// report them all at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d invalid fields", len(e.Fields))
}

// Sanitize strips control characters and trims surrounding whitespace.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ContainsDangerousContent reports whether s carries a known script or
// SQL injection marker.
func ContainsDangerousContent(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range dangerousPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Input shapes. Validation is deliberately kept in free functions
// returning findings rather than methods on the carriers, so the same
// checks serve HTTP handlers and tests without dragging transport
// concerns into the domain.
type (
	RegisterInput struct {
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}

	AccountInput struct {
		Name           string      `json:"name"`
		Description    string      `json:"description"`
		InitialBalance Money       `json:"initial_balance"`
		Kind           AccountKind `json:"kind"`
		AlertThreshold Money       `json:"alert_threshold"`
	}

	CategoryInput struct {
		Name          string          `json:"name"`
		Description   string          `json:"description"`
		Kind          TransactionKind `json:"kind"`
		Color         string          `json:"color"`
		MonthlyBudget Money           `json:"monthly_budget"`
	}

	TransactionInput struct {
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		Kind        TransactionKind `json:"kind"`
		CategoryID  int64           `json:"category_id"`
		AccountID   *int64          `json:"account_id,omitempty"`
	}
)

func checkName(field, name string, findings []FieldError) []FieldError {
	switch {
	case strings.TrimSpace(name) == "":
		findings = append(findings, FieldError{Field: field, Message: "is required"})
	case len(name) > maxNameLength:
		findings = append(findings, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxNameLength)})
	case ContainsDangerousContent(name):
		findings = append(findings, FieldError{Field: field, Message: "contains disallowed content"})
	}
	return findings
}

func checkDescription(field, desc string, findings []FieldError) []FieldError {
	// Descriptions are optional.
	if desc == "" {
		return findings
	}
	if len(desc) > maxDescriptionLength {
		return append(findings, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxDescriptionLength)})
	}
	if ContainsDangerousContent(desc) {
		return append(findings, FieldError{Field: field, Message: "contains disallowed content"})
	}
	return findings
}

func checkAmount(field string, m Money, findings []FieldError) []FieldError {
	if !m.IsPositive() {
		return append(findings, FieldError{Field: field, Message: "must be positive"})
	}
	if m.Exponent() < -2 {
		return append(findings, FieldError{Field: field, Message: "must have at most two decimal places"})
	}
	return findings
}

// checkThreshold accepts zero (disabled) where checkAmount would not.
func checkThreshold(field string, m Money, findings []FieldError) []FieldError {
	if m.IsNegative() {
		return append(findings, FieldError{Field: field, Message: "must be zero or positive"})
	}
	if m.Exponent() < -2 {
		return append(findings, FieldError{Field: field, Message: "must have at most two decimal places"})
	}
	return findings
}

func asError(findings []FieldError) error {
	if len(findings) == 0 {
		return nil
	}
	return &ValidationError{Fields: findings}
}

// ValidateRegister checks a registration request.
func ValidateRegister(in RegisterInput) error {
	var findings []FieldError
	findings = checkName("first_name", in.FirstName, findings)
	findings = checkName("last_name", in.LastName, findings)
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.TrimSpace(in.Email) == "" {
		findings = append(findings, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(in.Password) < minPasswordLength {
		findings = append(findings, FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if in.Password != in.ConfirmPassword {
		findings = append(findings, FieldError{Field: "confirm_password", Message: "does not match password"})
	}
	return asError(findings)
}

// ValidateAccountInput checks an account create/update payload.
func ValidateAccountInput(in AccountInput) error {
	var findings []FieldError
	findings = checkName("name", in.Name, findings)
	findings = checkDescription("description", in.Description, findings)
	if !ValidAccountKind(in.Kind) {
		findings = append(findings, FieldError{Field: "kind", Message: "must be checking, savings, investment or other"})
	}
	if in.InitialBalance.Exponent() < -2 {
		findings = append(findings, FieldError{Field: "initial_balance", Message: "must have at most two decimal places"})
	}
	findings = checkThreshold("alert_threshold", in.AlertThreshold, findings)
	return asError(findings)
}

// ValidateCategoryInput checks a category create/update payload.
func ValidateCategoryInput(in CategoryInput) error {
	var findings []FieldError
	findings = checkName("name", in.Name, findings)
	findings = checkDescription("description", in.Description, findings)
	if !ValidTransactionKind(in.Kind) {
		findings = append(findings, FieldError{Field: "kind", Message: "must be expense or income"})
	}
	if !hexColorRe.MatchString(in.Color) {
		findings = append(findings, FieldError{Field: "color", Message: "must be a hex color (#RRGGBB)"})
	}
	findings = checkThreshold("monthly_budget", in.MonthlyBudget, findings)
	return asError(findings)
}

// ValidateTransactionInput checks a transaction create/update payload.
// The transaction date may be at most 24 hours in the future and no
// earlier than 1900-01-01.
func ValidateTransactionInput(in TransactionInput) error {
	var findings []FieldError
	findings = checkAmount("amount", in.Amount, findings)
	if strings.TrimSpace(in.Description) == "" {
		findings = append(findings, FieldError{Field: "description", Message: "is required"})
	} else {
		findings = checkDescription("description", in.Description, findings)
	}
	if !ValidTransactionKind(in.Kind) {
		findings = append(findings, FieldError{Field: "kind", Message: "must be expense or income"})
	}
	if in.CategoryID <= 0 {
		findings = append(findings, FieldError{Field: "category_id", Message: "is required"})
	}
	if in.AccountID != nil && *in.AccountID <= 0 {
		findings = append(findings, FieldError{Field: "account_id", Message: "must be a valid id"})
	}
	minDate := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	if in.Date.IsZero() || in.Date.Before(minDate) || in.Date.After(time.Now().Add(24*time.Hour)) {
		findings = append(findings, FieldError{Field: "date", Message: "must be between 1900-01-01 and tomorrow"})
	}
	return asError(findings)
}

// ValidateDateRange checks a [from, to] query window.
func ValidateDateRange(from, to time.Time) error {
	var findings []FieldError
	if from.IsZero() {
		findings = append(findings, FieldError{Field: "from", Message: "is required"})
	}
	if to.IsZero() {
		findings = append(findings, FieldError{Field: "to", Message: "is required"})
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		findings = append(findings, FieldError{Field: "to", Message: "must not be before from"})
	}
	return asError(findings)
}

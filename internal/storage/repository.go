// Package storage is the SQLite adapter behind store.Store. Amounts
// live in INTEGER cent columns so SUM and ORDER BY stay exact; the
// validation layer guarantees nothing with more than two decimal
// places reaches this package.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finapi/internal/core"
	"finapi/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma rides on the DSN so every pooled connection enforces
	// the RESTRICT foreign keys.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// translateErr maps driver constraint failures onto the domain errors
// callers branch on.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return core.ErrConflict
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return core.ErrReferenced
	}
	return err
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", translateErr(err))
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID, "email", u.Email)
	return nil
}

const userColumns = `id, email, first_name, last_name, password_hash, role, created_at, last_login_at`

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.CreatedAt, &lastLogin)
	if err != nil {
		return core.User{}, translateErr(err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	var lastLogin sql.NullTime
	if u.LastLoginAt != nil {
		lastLogin = sql.NullTime{Time: *u.LastLoginAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, first_name = ?, last_name = ?, password_hash = ?, role = ?, last_login_at = ?
		WHERE id = ?`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, lastLogin, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", translateErr(err))
	}
	return requireRow(res)
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	a.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (name, description, initial_balance_cents, kind, alert_threshold_cents, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Description, core.Cents(a.InitialBalance), a.Kind, core.Cents(a.AlertThreshold), a.UserID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", translateErr(err))
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "user_id", a.UserID, "name", a.Name)
	return nil
}

const accountColumns = `id, name, description, initial_balance_cents, kind, alert_threshold_cents, user_id, created_at`

func scanAccount(sc interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var initialCents, thresholdCents int64
	err := sc.Scan(&a.ID, &a.Name, &a.Description, &initialCents, &a.Kind, &thresholdCents, &a.UserID, &a.CreatedAt)
	if err != nil {
		return core.Account{}, translateErr(err)
	}
	a.InitialBalance = core.MoneyFromCents(initialCents)
	a.AlertThreshold = core.MoneyFromCents(thresholdCents)
	return a, nil
}

func (r *SQLiteRepository) AccountByID(ctx context.Context, userID string, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string, f store.AccountFilter) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	args := []any{userID}
	if f.Name != "" {
		query += ` AND name LIKE '%' || ? || '%'`
		args = append(args, f.Name)
	}
	if f.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, *f.Kind)
	}
	order := "name"
	if f.SortBy == "created_at" {
		order = "created_at"
	}
	query += ` ORDER BY ` + order
	if f.SortOrder == "desc" {
		query += ` DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, description = ?, initial_balance_cents = ?, kind = ?, alert_threshold_cents = ?
		WHERE id = ? AND user_id = ?`,
		a.Name, a.Description, core.Cents(a.InitialBalance), a.Kind, core.Cents(a.AlertThreshold), a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", translateErr(err))
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", translateErr(err))
	}
	return requireRow(res)
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, kind, color, monthly_budget_cents, is_global, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.Kind, c.Color, core.Cents(c.MonthlyBudget), c.IsGlobal, c.UserID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create category: %w", translateErr(err))
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "category_id", c.ID, "user_id", c.UserID, "name", c.Name)
	return nil
}

const categoryColumns = `id, name, description, kind, color, monthly_budget_cents, is_global, user_id, created_at`

func scanCategory(sc interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var budgetCents int64
	err := sc.Scan(&c.ID, &c.Name, &c.Description, &c.Kind, &c.Color, &budgetCents, &c.IsGlobal, &c.UserID, &c.CreatedAt)
	if err != nil {
		return core.Category{}, translateErr(err)
	}
	c.MonthlyBudget = core.MoneyFromCents(budgetCents)
	return c, nil
}

func (r *SQLiteRepository) CategoryByID(ctx context.Context, userID string, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND (user_id = ? OR is_global = 1)`,
		id, userID)
	return scanCategory(row)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string, kind *core.TransactionKind) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE (user_id = ? OR is_global = 1)`
	args := []any{userID}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, *kind)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	cur, err := r.CategoryByID(ctx, c.UserID, c.ID)
	if err != nil {
		return err
	}
	if cur.IsGlobal {
		return core.ErrGlobalReadOnly
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ?, kind = ?, color = ?, monthly_budget_cents = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, c.Kind, c.Color, core.Cents(c.MonthlyBudget), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", translateErr(err))
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID string, id int64) error {
	cur, err := r.CategoryByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur.IsGlobal {
		return core.ErrGlobalReadOnly
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", translateErr(err))
	}
	return requireRow(res)
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	t.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, description, date, kind, user_id, category_id, account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		core.Cents(t.Amount), t.Description, core.DateOnly(t.Date), t.Kind, t.UserID, t.CategoryID, nullableID(t.AccountID), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", translateErr(err))
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount_cents", core.Cents(t.Amount))
	return nil
}

const transactionSelect = `
	SELECT t.id, t.amount_cents, t.description, t.date, t.kind, t.user_id,
	       t.category_id, t.account_id, t.created_at,
	       c.name AS category_name, COALESCE(a.name, '') AS account_name
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
	LEFT JOIN accounts a ON a.id = t.account_id`

func scanTransaction(sc interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var cents int64
	var accountID sql.NullInt64
	err := sc.Scan(&t.ID, &cents, &t.Description, &t.Date, &t.Kind, &t.UserID,
		&t.CategoryID, &accountID, &t.CreatedAt, &t.CategoryName, &t.AccountName)
	if err != nil {
		return core.Transaction{}, translateErr(err)
	}
	t.Amount = core.MoneyFromCents(cents)
	if accountID.Valid {
		id := accountID.Int64
		t.AccountID = &id
	}
	return t, nil
}

func (r *SQLiteRepository) TransactionByID(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	return scanTransaction(row)
}

// filterClause renders the WHERE conditions a TransactionFilter asks
// for. The t. prefix keeps it usable next to the joined select.
func filterClause(userID string, f store.TransactionFilter) (string, []any) {
	conds := []string{"t.user_id = ?"}
	args := []any{userID}
	if f.From != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, core.DateOnly(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, core.DateOnly(*f.To))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.AccountID != nil {
		conds = append(conds, "t.account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.Kind != nil {
		conds = append(conds, "t.kind = ?")
		args = append(args, *f.Kind)
	}
	if f.MinAmount != nil {
		conds = append(conds, "t.amount_cents >= ?")
		args = append(args, core.Cents(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		conds = append(conds, "t.amount_cents <= ?")
		args = append(args, core.Cents(*f.MaxAmount))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) (store.TransactionPage, error) {
	where, args := filterClause(userID, f)

	var page store.TransactionPage
	var signedCents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN t.kind = 'expense' THEN -t.amount_cents ELSE t.amount_cents END), 0)
		FROM transactions t`+where, args...).Scan(&page.TotalCount, &signedCents)
	if err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}
	page.TotalAmount = core.MoneyFromCents(signedCents)

	order := "t.date"
	if f.SortBy == "amount" {
		order = "t.amount_cents"
	}
	dir := " DESC"
	if f.SortOrder == "asc" {
		dir = " ASC"
	}
	query := transactionSelect + where + " ORDER BY " + order + dir + ", t.id" + dir

	page.Page = f.Page
	page.PageSize = f.PageSize
	if page.Page < 1 {
		page.Page = 1
	}
	if f.PageSize > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.PageSize, (page.Page-1)*f.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	page.Items = make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return page, fmt.Errorf("scan transaction: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	return page, rows.Err()
}

func (r *SQLiteRepository) ListForAccount(ctx context.Context, userID string, accountID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		transactionSelect+` WHERE t.user_id = ? AND t.account_id = ? ORDER BY t.date, t.id`,
		userID, accountID)
}

func (r *SQLiteRepository) ListInWindow(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		transactionSelect+` WHERE t.user_id = ? AND t.date >= ? AND t.date <= ? ORDER BY t.date, t.id`,
		userID, w.Start, w.End)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID string, categoryID int64, kind core.TransactionKind, w core.Window) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND category_id = ? AND kind = ? AND date >= ? AND date <= ?`,
		userID, categoryID, kind, w.Start, w.End).Scan(&cents)
	if err != nil {
		return core.MoneyZero, fmt.Errorf("sum by category: %w", err)
	}
	return core.MoneyFromCents(cents), nil
}

func (r *SQLiteRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM transactions WHERE date >= ? ORDER BY user_id`,
		core.DateOnly(since))
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET amount_cents = ?, description = ?, date = ?, kind = ?, category_id = ?, account_id = ?
		WHERE id = ? AND user_id = ?`,
		core.Cents(t.Amount), t.Description, core.DateOnly(t.Date), t.Kind, t.CategoryID, nullableID(t.AccountID), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", translateErr(err))
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", translateErr(err))
	}
	return requireRow(res)
}

// --- notifications ---

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n *core.Notification) error {
	n.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, kind, created_at, read, context)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Title, n.Message, n.Kind, n.CreatedAt, n.Read, nullableJSON(n.Context))
	if err != nil {
		return fmt.Errorf("create notification: %w", translateErr(err))
	}
	n.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("notification id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]core.Notification, error) {
	query := `SELECT id, user_id, title, message, kind, created_at, read, context
		FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]core.Notification, 0)
	for rows.Next() {
		var n core.Notification
		var rawCtx sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind, &n.CreatedAt, &n.Read, &rawCtx); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if rawCtx.Valid {
			n.Context = []byte(rawCtx.String)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteNotification(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireRow(res)
}

// requireRow turns a zero-row write into core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

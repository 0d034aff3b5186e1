package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ExpenseRow struct {
	Seq         int64
	ID          string
	UserID      string
	Amount      string
	Category    string
	Date        string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

type UserRow struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     string
	CreatedAt    string
}

const expenseColumns = `seq, id, user_id, amount, category, date, description, created_at, updated_at`

const createExpense = `INSERT INTO expenses (id, user_id, amount, category, date, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	ID          string
	UserID      string
	Amount      string
	Category    string
	Date        string
	Description string
	Now         string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.UserID, arg.Amount, arg.Category, arg.Date, arg.Description, arg.Now, arg.Now)
	return err
}

const updateExpense = `UPDATE expenses
SET amount = ?, category = ?, date = ?, description = ?, updated_at = ?
WHERE id = ? AND user_id = ?`

type UpdateExpenseParams struct {
	ID          string
	UserID      string
	Amount      string
	Category    string
	Date        string
	Description string
	Now         string
}

// UpdateExpense returns the number of rows changed.
func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.Amount, arg.Category, arg.Date, arg.Description, arg.Now, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var e ExpenseRow
	err := row.Scan(&e.Seq, &e.ID, &e.UserID, &e.Amount, &e.Category, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const listExpensesByUser = `SELECT ` + expenseColumns + ` FROM expenses
WHERE user_id = ?
ORDER BY date DESC, seq ASC`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID string) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var e ExpenseRow
		if err := rows.Scan(&e.Seq, &e.ID, &e.UserID, &e.Amount, &e.Category, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `INSERT INTO users (id, email, display_name, password_hash, provider, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID, arg.Email, arg.DisplayName, arg.PasswordHash, arg.Provider, arg.CreatedAt)
	return err
}

const userColumns = `id, email, display_name, password_hash, provider, created_at`

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ? AND email <> ''`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const userExists = `SELECT COUNT(*) FROM users WHERE id = ? OR (email = ? AND email <> '')`

func (q *Queries) UserExists(ctx context.Context, id, email string) (bool, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, userExists, id, email).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanUser(row *sql.Row) (UserRow, error) {
	var u UserRow
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Provider, &u.CreatedAt)
	return u, err
}

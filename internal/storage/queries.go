package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Row types mirror the tables. Timestamps are unix microseconds.

type LedgerGroup struct {
	ID        string
	Name      string
	CreatedAt int64
}

type GroupMember struct {
	GroupID     string
	MemberID    string
	DisplayName string
	JoinedAt    int64
}

type Expense struct {
	ID          string
	GroupID     string
	PayerID     string
	AmountCents int64
	Currency    string
	SplitMethod string
	Description string
	Category    string
	OccurredAt  int64
	CreatedAt   int64
	DeletedAt   sql.NullInt64
}

type ExpenseSplit struct {
	ExpenseID   string
	MemberID    string
	Ordinal     int64
	AmountCents int64
	RawValue    sql.NullInt64
}

const createGroup = `INSERT INTO ledger_groups (id, name, created_at) VALUES (?, ?, ?)`

func (q *Queries) CreateGroup(ctx context.Context, arg LedgerGroup) error {
	_, err := q.db.ExecContext(ctx, q.dialect.Rebind(createGroup), arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const getGroup = `SELECT id, name, created_at FROM ledger_groups WHERE id = ?`

func (q *Queries) GetGroup(ctx context.Context, id string) (LedgerGroup, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(getGroup), id)
	var i LedgerGroup
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const listGroups = `SELECT id, name, created_at FROM ledger_groups ORDER BY created_at, id`

func (q *Queries) ListGroups(ctx context.Context) ([]LedgerGroup, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listGroups))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerGroup
	for rows.Next() {
		var i LedgerGroup
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const addMember = `INSERT INTO group_members (group_id, member_id, display_name, joined_at) VALUES (?, ?, ?, ?)
ON CONFLICT (group_id, member_id) DO NOTHING`

func (q *Queries) AddMember(ctx context.Context, arg GroupMember) (int64, error) {
	result, err := q.db.ExecContext(ctx, q.dialect.Rebind(addMember), arg.GroupID, arg.MemberID, arg.DisplayName, arg.JoinedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countMember = `SELECT COUNT(*) FROM group_members WHERE group_id = ? AND member_id = ?`

func (q *Queries) CountMember(ctx context.Context, groupID, memberID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(countMember), groupID, memberID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listMembers = `SELECT group_id, member_id, display_name, joined_at FROM group_members
WHERE group_id = ? ORDER BY joined_at, member_id`

func (q *Queries) ListMembers(ctx context.Context, groupID string) ([]GroupMember, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listMembers), groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupMember
	for rows.Next() {
		var i GroupMember
		if err := rows.Scan(&i.GroupID, &i.MemberID, &i.DisplayName, &i.JoinedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (
    id, group_id, payer_id, amount_cents, currency, split_method, description, category, occurred_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg Expense) error {
	_, err := q.db.ExecContext(ctx, q.dialect.Rebind(createExpense),
		arg.ID,
		arg.GroupID,
		arg.PayerID,
		arg.AmountCents,
		arg.Currency,
		arg.SplitMethod,
		arg.Description,
		arg.Category,
		arg.OccurredAt,
		arg.CreatedAt,
	)
	return err
}

const createExpenseSplit = `INSERT INTO expense_splits (expense_id, member_id, ordinal, amount_cents, raw_value)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateExpenseSplit(ctx context.Context, arg ExpenseSplit) error {
	_, err := q.db.ExecContext(ctx, q.dialect.Rebind(createExpenseSplit),
		arg.ExpenseID,
		arg.MemberID,
		arg.Ordinal,
		arg.AmountCents,
		arg.RawValue,
	)
	return err
}

const softDeleteExpense = `UPDATE expenses SET deleted_at = ? WHERE group_id = ? AND id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteExpense(ctx context.Context, deletedAt int64, groupID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, q.dialect.Rebind(softDeleteExpense), deletedAt, groupID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const expenseColumns = `id, group_id, payer_id, amount_cents, currency, split_method, description, category, occurred_at, created_at, deleted_at`

func scanExpense(s interface{ Scan(...any) error }) (Expense, error) {
	var i Expense
	err := s.Scan(
		&i.ID,
		&i.GroupID,
		&i.PayerID,
		&i.AmountCents,
		&i.Currency,
		&i.SplitMethod,
		&i.Description,
		&i.Category,
		&i.OccurredAt,
		&i.CreatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE group_id = ? AND id = ? AND deleted_at IS NULL`

func (q *Queries) GetExpense(ctx context.Context, groupID, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.Rebind(getExpense), groupID, id)
	return scanExpense(row)
}

const listGroupExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE group_id = ? AND deleted_at IS NULL ORDER BY created_at, id`

func (q *Queries) ListGroupExpenses(ctx context.Context, groupID string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listGroupExpenses), groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listExpenseSplits = `SELECT expense_id, member_id, ordinal, amount_cents, raw_value FROM expense_splits
WHERE expense_id = ? ORDER BY ordinal`

func (q *Queries) ListExpenseSplits(ctx context.Context, expenseID string) ([]ExpenseSplit, error) {
	return q.listSplits(ctx, listExpenseSplits, expenseID)
}

const listGroupSplits = `SELECT s.expense_id, s.member_id, s.ordinal, s.amount_cents, s.raw_value
FROM expense_splits s JOIN expenses e ON e.id = s.expense_id
WHERE e.group_id = ? AND e.deleted_at IS NULL ORDER BY s.expense_id, s.ordinal`

func (q *Queries) ListGroupSplits(ctx context.Context, groupID string) ([]ExpenseSplit, error) {
	return q.listSplits(ctx, listGroupSplits, groupID)
}

func (q *Queries) listSplits(ctx context.Context, query string, arg string) ([]ExpenseSplit, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(query), arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseSplit
	for rows.Next() {
		var i ExpenseSplit
		if err := rows.Scan(&i.ExpenseID, &i.MemberID, &i.Ordinal, &i.AmountCents, &i.RawValue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

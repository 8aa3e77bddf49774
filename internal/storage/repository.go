package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"splitledger/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Repository persists groups, members and the expense history of each group.
// It stores what it is given and never derives balances.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	queries *Queries
}

// Open connects to the backend, applies migrations and returns a ready
// repository. dsn is a file path for sqlite and a connection URL for postgres.
func Open(ctx context.Context, d Dialect, dsn string) (*Repository, error) {
	switch d {
	case DialectSQLite:
		return NewSQLiteRepository(ctx, dsn)
	case DialectPostgres:
		return NewPostgresRepository(ctx, dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, string(d))
}

func NewSQLiteRepository(ctx context.Context, dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(DialectSQLite.DriverName(), dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent transactions.
	db.SetMaxOpenConns(1)

	return newRepository(ctx, db, DialectSQLite)
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(DialectPostgres.DriverName(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newRepository(ctx, db, DialectPostgres)
}

func newRepository(ctx context.Context, db *sql.DB, d Dialect) (*Repository, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{
		db:      db,
		dialect: d,
		queries: New(db, d),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) CreateGroup(ctx context.Context, g core.Group) error {
	err := r.queries.CreateGroup(ctx, LedgerGroup{
		ID:        string(g.ID),
		Name:      g.Name,
		CreatedAt: toMicros(g.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	slog.InfoContext(ctx, "Group saved", "group_id", g.ID, "name", g.Name)
	return nil
}

func (r *Repository) GetGroup(ctx context.Context, id core.GroupID) (core.Group, error) {
	g, err := r.queries.GetGroup(ctx, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	return toGroup(g), nil
}

func (r *Repository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.queries.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups := make([]core.Group, len(rows))
	for i, g := range rows {
		groups[i] = toGroup(g)
	}
	return groups, nil
}

// AddMember registers a member in a group. Adding the same member twice
// returns ErrAlreadyExists.
func (r *Repository) AddMember(ctx context.Context, m core.Member) error {
	if _, err := r.GetGroup(ctx, m.GroupID); err != nil {
		return err
	}

	n, err := r.queries.AddMember(ctx, GroupMember{
		GroupID:     string(m.GroupID),
		MemberID:    string(m.ID),
		DisplayName: m.DisplayName,
		JoinedAt:    toMicros(m.JoinedAt),
	})
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s in group %s: %w", m.ID, m.GroupID, ErrAlreadyExists)
	}

	slog.InfoContext(ctx, "Member added", "group_id", m.GroupID, "member_id", m.ID)
	return nil
}

func (r *Repository) IsMember(ctx context.Context, groupID core.GroupID, memberID core.MemberID) (bool, error) {
	n, err := r.queries.CountMember(ctx, string(groupID), string(memberID))
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ListMembers(ctx context.Context, groupID core.GroupID) ([]core.Member, error) {
	rows, err := r.queries.ListMembers(ctx, string(groupID))
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]core.Member, len(rows))
	for i, m := range rows {
		members[i] = core.Member{
			GroupID:     core.GroupID(m.GroupID),
			ID:          core.MemberID(m.MemberID),
			DisplayName: m.DisplayName,
			JoinedAt:    fromMicros(m.JoinedAt),
		}
	}
	return members, nil
}

// CreateExpense stores an expense and its splits atomically.
func (r *Repository) CreateExpense(ctx context.Context, e core.ExpenseWithSplits) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	err = q.CreateExpense(ctx, Expense{
		ID:          string(e.ID),
		GroupID:     string(e.GroupID),
		PayerID:     string(e.PayerID),
		AmountCents: e.AmountCents,
		Currency:    e.Currency.Code(),
		SplitMethod: e.Method.String(),
		Description: e.Description,
		Category:    e.Category,
		OccurredAt:  toMicros(e.OccurredAt),
		CreatedAt:   toMicros(e.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	for i, s := range e.Splits {
		split := ExpenseSplit{
			ExpenseID:   string(e.ID),
			MemberID:    string(s.MemberID),
			Ordinal:     int64(i),
			AmountCents: s.AmountCents,
		}
		if s.RawValue != nil {
			split.RawValue = sql.NullInt64{Int64: *s.RawValue, Valid: true}
		}
		if err := q.CreateExpenseSplit(ctx, split); err != nil {
			return fmt.Errorf("create split for member %s: %w", s.MemberID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"group_id", e.GroupID,
		"amount_cents", e.AmountCents,
		"currency", e.Currency.Code(),
		"split_method", e.Method.String(),
		"split_count", len(e.Splits))
	return nil
}

// SoftDeleteExpense hides an expense from the history. Deleting an expense
// that is missing or already deleted returns ErrNotFound.
func (r *Repository) SoftDeleteExpense(ctx context.Context, groupID core.GroupID, id core.ExpenseID, at time.Time) error {
	n, err := r.queries.SoftDeleteExpense(ctx, toMicros(at), string(groupID), string(id))
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "group_id", groupID)
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, groupID core.GroupID, id core.ExpenseID) (core.ExpenseWithSplits, error) {
	row, err := r.queries.GetExpense(ctx, string(groupID), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseWithSplits{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.ExpenseWithSplits{}, fmt.Errorf("get expense: %w", err)
	}

	splits, err := r.queries.ListExpenseSplits(ctx, row.ID)
	if err != nil {
		return core.ExpenseWithSplits{}, fmt.Errorf("list splits: %w", err)
	}

	return toExpense(row, splits)
}

// ListGroupExpenses returns the non-deleted history of a group ordered by
// creation time, each expense with its splits in their original order.
func (r *Repository) ListGroupExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error) {
	rows, err := r.queries.ListGroupExpenses(ctx, string(groupID))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	splitRows, err := r.queries.ListGroupSplits(ctx, string(groupID))
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	byExpense := make(map[string][]ExpenseSplit, len(rows))
	for _, s := range splitRows {
		byExpense[s.ExpenseID] = append(byExpense[s.ExpenseID], s)
	}

	expenses := make([]core.ExpenseWithSplits, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row, byExpense[row.ID])
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	slog.DebugContext(ctx, "Loaded group history", "group_id", groupID, "expenses", len(expenses))
	return expenses, nil
}

func toGroup(g LedgerGroup) core.Group {
	return core.Group{
		ID:        core.GroupID(g.ID),
		Name:      g.Name,
		CreatedAt: fromMicros(g.CreatedAt),
	}
}

func toExpense(row Expense, splitRows []ExpenseSplit) (core.ExpenseWithSplits, error) {
	currency, err := core.ParseCurrency(row.Currency)
	if err != nil {
		return core.ExpenseWithSplits{}, fmt.Errorf("expense %s: %w", row.ID, err)
	}
	method, err := core.ParseSplitMethod(row.SplitMethod)
	if err != nil {
		return core.ExpenseWithSplits{}, fmt.Errorf("expense %s: %w", row.ID, err)
	}

	splits := make([]core.ExpenseSplit, len(splitRows))
	for i, s := range splitRows {
		splits[i] = core.ExpenseSplit{
			MemberID:    core.MemberID(s.MemberID),
			AmountCents: s.AmountCents,
		}
		if s.RawValue.Valid {
			v := s.RawValue.Int64
			splits[i].RawValue = &v
		}
	}

	return core.ExpenseWithSplits{
		Expense: core.Expense{
			ID:          core.ExpenseID(row.ID),
			GroupID:     core.GroupID(row.GroupID),
			PayerID:     core.MemberID(row.PayerID),
			AmountCents: row.AmountCents,
			Currency:    currency,
			Method:      method,
			Description: row.Description,
			Category:    row.Category,
			OccurredAt:  fromMicros(row.OccurredAt),
			CreatedAt:   fromMicros(row.CreatedAt),
		},
		Splits: splits,
	}, nil
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

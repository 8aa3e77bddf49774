package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"splitledger/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedGroup(t *testing.T, repo *Repository, members ...core.MemberID) core.Group {
	t.Helper()
	ctx := context.Background()
	g := core.Group{ID: "trip", Name: "Weekend trip", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	if err := repo.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	for i, m := range members {
		err := repo.AddMember(ctx, core.Member{
			GroupID:     g.ID,
			ID:          m,
			DisplayName: string(m),
			JoinedAt:    g.CreatedAt.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddMember(%s) error = %v", m, err)
		}
	}
	return g
}

func ptr(v int64) *int64 { return &v }

func TestRepository_GroupsAndMembers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "alice", "bob")

	got, err := repo.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if diff := cmp.Diff(g, got); diff != "" {
		t.Errorf("GetGroup() mismatch (-want +got):\n%s", diff)
	}

	if _, err := repo.GetGroup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGroup(missing) error = %v, want ErrNotFound", err)
	}

	groups, err := repo.ListGroups(ctx)
	if err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != g.ID {
		t.Errorf("ListGroups() = %v, want [%s]", groups, g.ID)
	}

	ok, err := repo.IsMember(ctx, g.ID, "alice")
	if err != nil || !ok {
		t.Errorf("IsMember(alice) = %v, %v; want true, nil", ok, err)
	}
	ok, err = repo.IsMember(ctx, g.ID, "carol")
	if err != nil || ok {
		t.Errorf("IsMember(carol) = %v, %v; want false, nil", ok, err)
	}

	err = repo.AddMember(ctx, core.Member{GroupID: g.ID, ID: "alice", JoinedAt: time.Now()})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("AddMember(duplicate) error = %v, want ErrAlreadyExists", err)
	}
	err = repo.AddMember(ctx, core.Member{GroupID: "missing", ID: "alice", JoinedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMember(unknown group) error = %v, want ErrNotFound", err)
	}

	members, err := repo.ListMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	var ids []core.MemberID
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]core.MemberID{"alice", "bob"}, ids); diff != "" {
		t.Errorf("ListMembers() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_ExpenseLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "alice", "bob", "carol")
	eur := core.MustCurrency("EUR")
	at := time.Date(2024, 5, 2, 12, 30, 0, 0, time.UTC)

	dinner := core.ExpenseWithSplits{
		Expense: core.Expense{
			ID:          "e1",
			GroupID:     g.ID,
			PayerID:     "alice",
			AmountCents: 10000,
			Currency:    eur,
			Method:      core.SplitPercentage,
			Description: "Dinner",
			Category:    "food",
			OccurredAt:  at,
			CreatedAt:   at,
		},
		Splits: []core.ExpenseSplit{
			{MemberID: "carol", AmountCents: 5000, RawValue: ptr(5000)},
			{MemberID: "alice", AmountCents: 3000, RawValue: ptr(3000)},
			{MemberID: "bob", AmountCents: 2000, RawValue: ptr(2000)},
		},
	}
	taxi := core.ExpenseWithSplits{
		Expense: core.Expense{
			ID:          "e2",
			GroupID:     g.ID,
			PayerID:     "bob",
			AmountCents: 900,
			Currency:    eur,
			Method:      core.SplitEqual,
			OccurredAt:  at,
			CreatedAt:   at.Add(time.Hour),
		},
		Splits: []core.ExpenseSplit{
			{MemberID: "alice", AmountCents: 300},
			{MemberID: "bob", AmountCents: 300},
			{MemberID: "carol", AmountCents: 300},
		},
	}

	for _, e := range []core.ExpenseWithSplits{taxi, dinner} {
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense(%s) error = %v", e.ID, err)
		}
	}

	got, err := repo.GetExpense(ctx, g.ID, "e1")
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if diff := cmp.Diff(dinner, got); diff != "" {
		t.Errorf("GetExpense() mismatch (-want +got):\n%s", diff)
	}

	history, err := repo.ListGroupExpenses(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListGroupExpenses() error = %v", err)
	}
	if diff := cmp.Diff([]core.ExpenseWithSplits{dinner, taxi}, history); diff != "" {
		t.Errorf("ListGroupExpenses() mismatch (-want +got):\n%s", diff)
	}

	if err := repo.SoftDeleteExpense(ctx, g.ID, "e1", at.Add(2*time.Hour)); err != nil {
		t.Fatalf("SoftDeleteExpense() error = %v", err)
	}
	if err := repo.SoftDeleteExpense(ctx, g.ID, "e1", at.Add(3*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("SoftDeleteExpense(again) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetExpense(ctx, g.ID, "e1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpense(deleted) error = %v, want ErrNotFound", err)
	}

	history, err = repo.ListGroupExpenses(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListGroupExpenses() error = %v", err)
	}
	if diff := cmp.Diff([]core.ExpenseWithSplits{taxi}, history); diff != "" {
		t.Errorf("ListGroupExpenses() after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_CreateExpenseIsAtomic(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "alice", "bob")

	e := core.ExpenseWithSplits{
		Expense: core.Expense{
			ID:          "e1",
			GroupID:     g.ID,
			PayerID:     "alice",
			AmountCents: 1000,
			Currency:    core.MustCurrency("EUR"),
			Method:      core.SplitExact,
			CreatedAt:   time.Now(),
		},
		Splits: []core.ExpenseSplit{
			{MemberID: "bob", AmountCents: 500},
			{MemberID: "bob", AmountCents: 500},
		},
	}
	if err := repo.CreateExpense(ctx, e); err == nil {
		t.Fatal("CreateExpense() with duplicate split member succeeded, want error")
	}

	history, err := repo.ListGroupExpenses(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListGroupExpenses() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("ListGroupExpenses() = %d expenses, want 0 after failed insert", len(history))
	}
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		query   string
		want    string
	}{
		{DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			if got := tt.dialect.Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"sqlite": DialectSQLite, " Postgres ": DialectPostgres} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("sheets"); !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("ParseDialect(sheets) error = %v, want ErrUnknownDialect", err)
	}
}

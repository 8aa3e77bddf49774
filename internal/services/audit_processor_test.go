package services

import (
	"context"
	"errors"
	"testing"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

func balancedExpense(id core.ExpenseID, group core.GroupID) core.ExpenseWithSplits {
	return core.ExpenseWithSplits{
		Expense: core.Expense{ID: id, GroupID: group, PayerID: "alice", AmountCents: 600, Currency: eur, Method: core.SplitEqual},
		Splits: []core.ExpenseSplit{
			{MemberID: "alice", AmountCents: 200},
			{MemberID: "bob", AmountCents: 200},
			{MemberID: "carol", AmountCents: 200},
		},
	}
}

func TestAuditProcessor_AuditGroupExports(t *testing.T) {
	store := newFakeStore().withGroup("trip", "alice", "bob", "carol")
	store.expenses = []core.ExpenseWithSplits{balancedExpense("e1", "trip")}
	exporter := &fakeExporter{}
	p := NewAuditProcessor(store, exporter, discardLogger())

	result, err := p.AuditGroup(context.Background(), "trip")
	if err != nil {
		t.Fatalf("AuditGroup() error = %v", err)
	}
	if result.Expenses != 1 || result.Debts != 2 || !result.Exported || result.Violation != nil {
		t.Errorf("AuditGroup() = %+v", result)
	}

	summary, ok := exporter.exported["trip"]
	if !ok {
		t.Fatal("summary not exported")
	}
	if got := summary.BalanceFor("alice")[eur]; got != 400 {
		t.Errorf("exported alice balance = %d, want 400", got)
	}
}

func TestAuditProcessor_ViolationIsReportedNotReturned(t *testing.T) {
	store := newFakeStore().withGroup("trip", "alice", "bob")
	store.expenses = []core.ExpenseWithSplits{{
		Expense: core.Expense{ID: "bad", GroupID: "trip", PayerID: "alice", AmountCents: 1000, Currency: eur, Method: core.SplitExact},
		Splits:  []core.ExpenseSplit{{MemberID: "bob", AmountCents: 990}},
	}}
	exporter := &fakeExporter{}
	p := NewAuditProcessor(store, exporter, discardLogger())

	result, err := p.AuditGroup(context.Background(), "trip")
	if err != nil {
		t.Fatalf("AuditGroup() error = %v, want nil", err)
	}
	if result.Violation == nil || result.Violation.Sum != 10 || !result.Violation.Currency.Equal(eur) {
		t.Errorf("Violation = %+v, want EUR sum 10", result.Violation)
	}
	if !errors.Is(result.Violation, ledger.ErrBalanceIntegrity) {
		t.Error("Violation does not match ErrBalanceIntegrity")
	}
	if len(exporter.exported) != 0 {
		t.Error("a summary with an integrity violation was exported")
	}
}

func TestAuditProcessor_Failures(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore().withGroup("trip", "alice")
	store.listErr = errors.New("db locked")
	if _, err := NewAuditProcessor(store, nil, discardLogger()).AuditGroup(ctx, "trip"); err == nil {
		t.Error("AuditGroup() with storage failure returned nil error")
	}

	store = newFakeStore().withGroup("trip", "alice", "bob", "carol")
	store.expenses = []core.ExpenseWithSplits{balancedExpense("e1", "trip")}
	p := NewAuditProcessor(store, &fakeExporter{err: errors.New("quota exceeded")}, discardLogger())
	if _, err := p.AuditGroup(ctx, "trip"); err == nil {
		t.Error("AuditGroup() with export failure returned nil error")
	}
}

func TestAuditProcessor_AuditAll(t *testing.T) {
	store := newFakeStore().
		withGroup("trip", "alice", "bob", "carol").
		withGroup("flat", "alice", "bob").
		withGroup("empty")
	store.expenses = []core.ExpenseWithSplits{
		balancedExpense("e1", "trip"),
		{
			Expense: core.Expense{ID: "bad", GroupID: "flat", PayerID: "alice", AmountCents: 100, Currency: eur, Method: core.SplitExact},
			Splits:  []core.ExpenseSplit{{MemberID: "bob", AmountCents: 50}},
		},
	}
	p := NewAuditProcessor(store, nil, discardLogger())

	report, err := p.AuditAll(context.Background())
	if err != nil {
		t.Fatalf("AuditAll() error = %v", err)
	}
	if report.Groups != 3 || report.Violations != 1 || report.Failures != 0 {
		t.Errorf("AuditAll() = %+v, want 3 groups, 1 violation, 0 failures", report)
	}
}

func TestAuditProcessor_AuditAllStopsOnCancel(t *testing.T) {
	store := newFakeStore().withGroup("trip")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewAuditProcessor(store, nil, discardLogger()).AuditAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("AuditAll() error = %v, want context.Canceled", err)
	}
}

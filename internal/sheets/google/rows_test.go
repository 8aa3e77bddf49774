package google

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

func tripSummary(t *testing.T) ledger.DebtSummary {
	t.Helper()
	summary, err := ledger.BuildSummary([]core.ExpenseWithSplits{{
		Expense: core.Expense{
			ID:          "e1",
			GroupID:     "g1",
			PayerID:     "alice",
			AmountCents: 9000,
			Currency:    core.MustCurrency("EUR"),
			Method:      core.SplitEqual,
		},
		Splits: []core.ExpenseSplit{
			{MemberID: "alice", AmountCents: 3000},
			{MemberID: "bob", AmountCents: 3000},
			{MemberID: "carol", AmountCents: 3000},
		},
	}})
	if err != nil {
		t.Fatalf("BuildSummary() error = %v", err)
	}
	return summary
}

func TestSummaryRows(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	got := summaryRows("g1", tripSummary(t), at)
	want := [][]any{
		{"Group", "g1", "Exported at", "2024-05-01T10:00:00Z"},
		{},
		debtHeader,
		{"bob", "alice", "EUR", 30.0, int64(3000)},
		{"carol", "alice", "EUR", 30.0, int64(3000)},
		{},
		balanceHeader,
		{"alice", "EUR", 60.0, int64(6000)},
		{"bob", "EUR", -30.0, int64(-3000)},
		{"carol", "EUR", -30.0, int64(-3000)},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaryRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryRows_Empty(t *testing.T) {
	empty := ledger.DebtSummary{
		Currencies:     map[core.Currency]ledger.CurrencyDebts{},
		MemberBalances: map[core.MemberID]map[core.Currency]int64{},
	}
	got := summaryRows("g1", empty, time.Unix(0, 0))
	if len(got) != 5 {
		t.Errorf("summaryRows() on empty summary = %d rows, want 5 (title, gap, headers)", len(got))
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		base  string
		group core.GroupID
		want  string
	}{
		{"Debts", "trip", "Debts trip"},
		{" Debts ", "a/b:c", "Debts a-b-c"},
		{"Debts", "[x]*?", "Debts (x)--"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.base, tt.group); got != tt.want {
			t.Errorf("sheetTitle(%q, %q) = %q, want %q", tt.base, tt.group, got, tt.want)
		}
	}

	long := sheetTitle("Debts", core.GroupID(make([]byte, 200)))
	if len(long) != maxSheetTitle {
		t.Errorf("len(sheetTitle(long)) = %d, want %d", len(long), maxSheetTitle)
	}
}

package google

import (
	"sort"
	"strings"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

const maxSheetTitle = 100

var (
	debtHeader    = []any{"From", "To", "Currency", "Amount", "Amount (cents)"}
	balanceHeader = []any{"Member", "Currency", "Balance", "Balance (cents)"}
)

// sheetTitle names the tab holding one group's summary.
func sheetTitle(base string, groupID core.GroupID) string {
	title := strings.TrimSpace(base) + " " + string(groupID)
	// Sheets rejects these characters in tab names.
	title = strings.NewReplacer("[", "(", "]", ")", "*", "-", "?", "-", "/", "-", "\\", "-", ":", "-").Replace(title)
	if len(title) > maxSheetTitle {
		title = title[:maxSheetTitle]
	}
	return title
}

// summaryRows lays out a summary as a values matrix: a title row, the
// simplified debts, then every member balance. Rows are sorted so repeated
// exports of the same summary are identical.
func summaryRows(groupID core.GroupID, s ledger.DebtSummary, exportedAt time.Time) [][]any {
	rows := [][]any{
		{"Group", string(groupID), "Exported at", exportedAt.UTC().Format(time.RFC3339)},
		{},
		debtHeader,
	}

	currencies := make([]core.Currency, 0, len(s.Currencies))
	for c := range s.Currencies {
		currencies = append(currencies, c)
	}
	sortCurrencies(currencies)

	for _, c := range currencies {
		for _, d := range s.Currencies[c].Debts {
			rows = append(rows, []any{
				string(d.FromMemberID),
				string(d.ToMemberID),
				c.Code(),
				core.Money{Cents: d.AmountCents}.Major(c),
				d.AmountCents,
			})
		}
	}

	rows = append(rows, []any{}, balanceHeader)

	members := make([]core.MemberID, 0, len(s.MemberBalances))
	for m := range s.MemberBalances {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	for _, m := range members {
		byCurrency := s.MemberBalances[m]
		codes := make([]core.Currency, 0, len(byCurrency))
		for c := range byCurrency {
			codes = append(codes, c)
		}
		sortCurrencies(codes)
		for _, c := range codes {
			cents := byCurrency[c]
			rows = append(rows, []any{string(m), c.Code(), core.Money{Cents: cents}.Major(c), cents})
		}
	}

	return rows
}

func sortCurrencies(cs []core.Currency) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Code() < cs[j].Code() })
}

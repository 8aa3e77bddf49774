package ledger

import "splitledger/internal/core"

// CurrencyDebts lists the simplified settlements for one currency.
type CurrencyDebts struct {
	Debts []SettlementTransaction `json:"debts"`
}

// DebtSummary is the externally visible result for a group: simplified debts
// per currency and the raw net balance of every member. Both use the same
// sign convention as Balances.
type DebtSummary struct {
	Currencies     map[core.Currency]CurrencyDebts           `json:"currencies"`
	MemberBalances map[core.MemberID]map[core.Currency]int64 `json:"memberBalances"`
}

// BuildSummary aggregates the expense history, checks that every currency
// nets to zero, and simplifies each currency independently. An integrity
// violation is returned as a *BalanceIntegrityError with no summary.
func BuildSummary(expenses []core.ExpenseWithSplits) (DebtSummary, error) {
	balances, err := AggregateBalances(expenses)
	if err != nil {
		return DebtSummary{}, err
	}
	if err := CheckIntegrity(balances); err != nil {
		return DebtSummary{}, err
	}

	summary := DebtSummary{
		Currencies:     make(map[core.Currency]CurrencyDebts, len(balances)),
		MemberBalances: make(map[core.MemberID]map[core.Currency]int64),
	}
	for _, c := range balances.Currencies() {
		summary.Currencies[c] = CurrencyDebts{Debts: Simplify(c, balances[c])}
		for member, amount := range balances[c] {
			byCurrency, ok := summary.MemberBalances[member]
			if !ok {
				byCurrency = make(map[core.Currency]int64)
				summary.MemberBalances[member] = byCurrency
			}
			byCurrency[c] = amount
		}
	}
	return summary, nil
}

// BalanceFor returns a member's balance per currency. Members with no history
// get an empty map.
func (s DebtSummary) BalanceFor(member core.MemberID) map[core.Currency]int64 {
	out := make(map[core.Currency]int64, len(s.MemberBalances[member]))
	for c, v := range s.MemberBalances[member] {
		out[c] = v
	}
	return out
}

// DebtsIn returns the simplified transactions for one currency.
func (s DebtSummary) DebtsIn(c core.Currency) []SettlementTransaction {
	return s.Currencies[c].Debts
}

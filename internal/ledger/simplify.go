package ledger

import "splitledger/internal/core"

// SettlementTransaction is one payment that moves a debtor toward zero.
type SettlementTransaction struct {
	FromMemberID core.MemberID `json:"fromMemberId"`
	ToMemberID   core.MemberID `json:"toMemberId"`
	AmountCents  int64         `json:"amountInCents"`
	Currency     core.Currency `json:"currency"`
}

type position struct {
	member core.MemberID
	amount uint64 // magnitude, so MinInt64 debts are representable
}

// Simplify turns the balances of one currency into settlement transactions.
//
// It repeatedly matches the largest creditor with the largest debtor, ties
// going to the lower member ID, and settles the smaller of the two amounts.
// At most creditors+debtors-1 transactions are produced, and replaying them
// brings every balance to zero. The input must already net to zero; see
// CheckIntegrity.
func Simplify(currency core.Currency, balances map[core.MemberID]int64) []SettlementTransaction {
	var creditors, debtors []position
	for member, amount := range balances {
		switch {
		case amount > 0:
			creditors = append(creditors, position{member: member, amount: uint64(amount)})
		case amount < 0:
			debtors = append(debtors, position{member: member, amount: uint64(-(amount+1)) + 1})
		}
	}

	txs := make([]SettlementTransaction, 0, max(len(creditors)+len(debtors)-1, 0))
	for len(creditors) > 0 && len(debtors) > 0 {
		ci := largest(creditors)
		di := largest(debtors)

		amount := min(creditors[ci].amount, debtors[di].amount)
		txs = append(txs, SettlementTransaction{
			FromMemberID: debtors[di].member,
			ToMemberID:   creditors[ci].member,
			AmountCents:  int64(amount), // bounded by a creditor balance
			Currency:     currency,
		})

		creditors[ci].amount -= amount
		debtors[di].amount -= amount
		if creditors[ci].amount == 0 {
			creditors = remove(creditors, ci)
		}
		if debtors[di].amount == 0 {
			debtors = remove(debtors, di)
		}
	}

	return txs
}

func largest(ps []position) int {
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i].amount > ps[best].amount ||
			(ps[i].amount == ps[best].amount && ps[i].member < ps[best].member) {
			best = i
		}
	}
	return best
}

func remove(ps []position, i int) []position {
	ps[i] = ps[len(ps)-1]
	return ps[:len(ps)-1]
}

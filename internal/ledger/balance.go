package ledger

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"splitledger/internal/core"
)

// Balances holds the net position of every member per currency. Positive
// means the member is owed money, negative means the member owes.
type Balances map[core.Currency]map[core.MemberID]int64

// AggregateBalances folds an expense history into net balances. The payer is
// credited the full amount and every split member is debited their share;
// settlements follow the same rule, which cancels the debt they repay.
// Balances stay within ±math.MaxInt64; a history that would leave that range
// fails with ErrBalanceOverflow.
func AggregateBalances(expenses []core.ExpenseWithSplits) (Balances, error) {
	balances := make(Balances)

	for _, e := range expenses {
		if e.Currency.IsZero() {
			return nil, fmt.Errorf("expense %s: %w", e.ID, core.ErrUnknownCurrency)
		}
		if !e.Method.Valid() {
			return nil, fmt.Errorf("expense %s: %w", e.ID, core.ErrUnknownSplitMethod)
		}
		if e.AmountCents < 0 {
			return nil, fmt.Errorf("expense %s: %w", e.ID, core.ErrInvalidAmount)
		}

		members, ok := balances[e.Currency]
		if !ok {
			members = make(map[core.MemberID]int64)
			balances[e.Currency] = members
		}

		credit, ok := addCents(members[e.PayerID], e.AmountCents)
		if !ok {
			return nil, fmt.Errorf("expense %s: member %s: %w", e.ID, e.PayerID, ErrBalanceOverflow)
		}
		members[e.PayerID] = credit

		for _, s := range e.Splits {
			if s.AmountCents < 0 {
				return nil, fmt.Errorf("expense %s: member %s: %w", e.ID, s.MemberID, ErrNegativeSplit)
			}
			debit, ok := addCents(members[s.MemberID], -s.AmountCents)
			if !ok {
				return nil, fmt.Errorf("expense %s: member %s: %w", e.ID, s.MemberID, ErrBalanceOverflow)
			}
			members[s.MemberID] = debit
		}
	}

	return balances, nil
}

// Currencies returns the currencies present, sorted by code.
func (b Balances) Currencies() []core.Currency {
	out := make([]core.Currency, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// addCents adds b to a, reporting false when the result would leave
// ±math.MaxInt64. MinInt64 is excluded so every balance can be negated.
func addCents(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < -math.MaxInt64-b) {
		return 0, false
	}
	return a + b, true
}

// Sum returns the total of all balances in a currency. It is zero for any
// history whose splits add up to their expense amounts. Credits and debits
// are accumulated in 128 bits, so a large history cannot wrap to zero; a
// total outside the int64 range is clamped.
func (b Balances) Sum(c core.Currency) int64 {
	var posHi, posLo, negHi, negLo uint64
	for _, v := range b[c] {
		var carry uint64
		if v >= 0 {
			posLo, carry = bits.Add64(posLo, uint64(v), 0)
			posHi += carry
		} else {
			negLo, carry = bits.Add64(negLo, uint64(-(v+1))+1, 0)
			negHi += carry
		}
	}

	switch {
	case posHi == negHi && posLo == negLo:
		return 0
	case posHi > negHi || (posHi == negHi && posLo > negLo):
		lo, borrow := bits.Sub64(posLo, negLo, 0)
		if posHi-negHi-borrow != 0 || lo > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(lo)
	default:
		lo, borrow := bits.Sub64(negLo, posLo, 0)
		if negHi-posHi-borrow != 0 || lo > math.MaxInt64 {
			return math.MinInt64
		}
		return -int64(lo)
	}
}

// CheckIntegrity returns a *BalanceIntegrityError for the first currency, in
// code order, whose balances do not net to zero.
func CheckIntegrity(b Balances) error {
	for _, c := range b.Currencies() {
		if sum := b.Sum(c); sum != 0 {
			return &BalanceIntegrityError{Currency: c, Sum: sum}
		}
	}
	return nil
}

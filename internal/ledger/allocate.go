package ledger

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"splitledger/internal/core"
)

// BasisPointsTotal is 100.00%.
const BasisPointsTotal = 10000

// Participant is one member taking part in an expense. Only the field
// matching the split method is read: AmountCents for exact, BasisPoints for
// percentage, Weight for shares.
type Participant struct {
	MemberID    core.MemberID
	AmountCents int64
	BasisPoints int64
	Weight      int64
}

// Allocate divides totalCents among participants according to method.
//
// For equal, percentage and shares the result always sums to totalCents.
// Rounding leftovers go one cent at a time: to the first participants in input
// order for equal, and to the largest fractional remainders (ties in input
// order) for percentage and shares. Exact amounts pass through unchanged.
//
// An empty participant list yields an empty result.
func Allocate(totalCents int64, method core.SplitMethod, participants []Participant) ([]core.ExpenseSplit, error) {
	if len(participants) == 0 {
		return nil, nil
	}
	if totalCents < 0 {
		return nil, ErrNegativeTotal
	}

	switch method {
	case core.SplitEqual:
		return allocateEqual(totalCents, participants), nil

	case core.SplitExact:
		splits := make([]core.ExpenseSplit, len(participants))
		for i, p := range participants {
			splits[i] = core.ExpenseSplit{MemberID: p.MemberID, AmountCents: p.AmountCents}
		}
		return splits, nil

	case core.SplitPercentage:
		values := make([]int64, len(participants))
		var sum int64
		for i, p := range participants {
			if p.BasisPoints < 0 || p.BasisPoints > BasisPointsTotal {
				return nil, fmt.Errorf("%w: member %s has %d", ErrBasisPointsRange, p.MemberID, p.BasisPoints)
			}
			values[i] = p.BasisPoints
			sum += p.BasisPoints
		}
		if sum != BasisPointsTotal {
			return nil, fmt.Errorf("%w: got %d", ErrBasisPointsSum, sum)
		}
		return largestRemainder(totalCents, participants, values, BasisPointsTotal), nil

	case core.SplitShares:
		values := make([]int64, len(participants))
		var totalWeight int64
		for i, p := range participants {
			if p.Weight < 0 {
				return nil, fmt.Errorf("%w: member %s has %d", ErrNegativeWeight, p.MemberID, p.Weight)
			}
			if totalWeight > math.MaxInt64-p.Weight {
				return nil, ErrWeightOverflow
			}
			values[i] = p.Weight
			totalWeight += p.Weight
		}
		if totalWeight == 0 {
			splits := make([]core.ExpenseSplit, len(participants))
			for i, p := range participants {
				splits[i] = core.ExpenseSplit{MemberID: p.MemberID, RawValue: rawValue(values[i])}
			}
			return splits, nil
		}
		return largestRemainder(totalCents, participants, values, totalWeight), nil

	case core.SplitSettlement:
		return nil, ErrNotAllocatable

	default:
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownSplitMethod, uint8(method))
	}
}

func allocateEqual(total int64, participants []Participant) []core.ExpenseSplit {
	n := int64(len(participants))
	base := total / n
	remainder := total % n

	splits := make([]core.ExpenseSplit, len(participants))
	for i, p := range participants {
		share := base
		if int64(i) < remainder {
			share++
		}
		splits[i] = core.ExpenseSplit{MemberID: p.MemberID, AmountCents: share}
	}
	return splits
}

// largestRemainder gives each participant floor(total*value/denom) and hands
// the leftover cents to the largest remainders. Every share has the same
// denominator, so remainders compare as integers. values must sum to denom.
func largestRemainder(total int64, participants []Participant, values []int64, denom int64) []core.ExpenseSplit {
	splits := make([]core.ExpenseSplit, len(participants))
	remainders := make([]uint64, len(participants))

	var allocated int64
	for i, p := range participants {
		// value <= denom keeps the quotient <= total, so Div64 cannot overflow.
		hi, lo := bits.Mul64(uint64(total), uint64(values[i]))
		q, r := bits.Div64(hi, lo, uint64(denom))
		splits[i] = core.ExpenseSplit{
			MemberID:    p.MemberID,
			AmountCents: int64(q),
			RawValue:    rawValue(values[i]),
		}
		remainders[i] = r
		allocated += int64(q)
	}

	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})

	for _, idx := range order[:total-allocated] {
		splits[idx].AmountCents++
	}
	return splits
}

func rawValue(v int64) *int64 {
	return &v
}

package ledger

import (
	"fmt"
	"math"

	"splitledger/internal/core"
)

// ValidationInput is a proposed set of splits for an expense.
type ValidationInput struct {
	Splits           []core.ExpenseSplit
	TotalAmountCents int64
	Method           core.SplitMethod
}

// ValidationResult is shown to users as-is, so Error names the discrepancy.
// Err carries the matching sentinel for callers that branch on it.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

func invalid(sentinel error, format string, args ...any) ValidationResult {
	msg := fmt.Sprintf(format, args...)
	return ValidationResult{Error: msg, Err: fmt.Errorf("%w: %s", sentinel, msg)}
}

// ValidateSplits checks that splits are consistent with the total and the
// split method. Sums are compared exactly.
func ValidateSplits(in ValidationInput) ValidationResult {
	if len(in.Splits) == 0 {
		return invalid(ErrNoSplits, "at least one split is required")
	}

	var sum int64
	for _, s := range in.Splits {
		if s.AmountCents < 0 {
			return invalid(ErrNegativeSplit, "split for member %s has negative amount %d", s.MemberID, s.AmountCents)
		}
		if s.AmountCents > math.MaxInt64-sum {
			return invalid(ErrSplitSumMismatch, "splits exceed the maximum amount of %d cents", int64(math.MaxInt64))
		}
		sum += s.AmountCents
	}

	switch in.Method {
	case core.SplitEqual, core.SplitExact:
		return checkSum(sum, in.TotalAmountCents)

	case core.SplitPercentage:
		if r := checkSum(sum, in.TotalAmountCents); !r.IsValid {
			return r
		}
		var bps int64
		for _, s := range in.Splits {
			if s.RawValue == nil {
				return invalid(ErrMissingRawValue, "split for member %s is missing a percentage", s.MemberID)
			}
			if *s.RawValue < 0 || *s.RawValue > BasisPointsTotal {
				return invalid(ErrBasisPointsRange, "split for member %s has %d basis points, expected 0 to %d", s.MemberID, *s.RawValue, BasisPointsTotal)
			}
			bps += *s.RawValue
		}
		if bps != BasisPointsTotal {
			return invalid(ErrPercentageSumMismatch, "percentages sum to %d basis points, expected %d", bps, BasisPointsTotal)
		}
		return valid()

	case core.SplitShares:
		for _, s := range in.Splits {
			if s.RawValue == nil {
				return invalid(ErrMissingRawValue, "split for member %s is missing a share weight", s.MemberID)
			}
			if *s.RawValue < 0 {
				return invalid(ErrNegativeWeight, "split for member %s has negative weight %d", s.MemberID, *s.RawValue)
			}
		}
		return checkSum(sum, in.TotalAmountCents)

	case core.SplitSettlement:
		if len(in.Splits) != 1 {
			return invalid(ErrSplitSumMismatch, "settlement must have exactly one split, got %d", len(in.Splits))
		}
		return checkSum(sum, in.TotalAmountCents)

	default:
		return invalid(core.ErrUnknownSplitMethod, "unknown split method %s", in.Method)
	}
}

func checkSum(sum, total int64) ValidationResult {
	if sum != total {
		return invalid(ErrSplitSumMismatch, "splits sum to %d, expected %d", sum, total)
	}
	return valid()
}

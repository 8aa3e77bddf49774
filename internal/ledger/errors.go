package ledger

import (
	"errors"
	"fmt"

	"splitledger/internal/core"
)

var (
	ErrNegativeTotal    = errors.New("total amount cannot be negative")
	ErrBasisPointsRange = errors.New("basis points must be between 0 and 10000")
	ErrBasisPointsSum   = errors.New("basis points must sum to 10000")
	ErrNegativeWeight   = errors.New("share weight cannot be negative")
	ErrWeightOverflow   = errors.New("share weights overflow")
	ErrNotAllocatable   = errors.New("settlements are not allocated")

	ErrNoSplits              = errors.New("no splits")
	ErrNegativeSplit         = errors.New("negative split amount")
	ErrSplitSumMismatch      = errors.New("split sum mismatch")
	ErrPercentageSumMismatch = errors.New("percentage sum mismatch")
	ErrMissingRawValue       = errors.New("missing split value")

	ErrBalanceIntegrity = errors.New("balance integrity violation")
	ErrBalanceOverflow  = errors.New("balance exceeds the representable range")
)

// BalanceIntegrityError reports a currency whose member balances do not net
// to zero. It means an unbalanced expense reached storage.
type BalanceIntegrityError struct {
	Currency core.Currency
	Sum      int64
}

func (e *BalanceIntegrityError) Error() string {
	return fmt.Sprintf("balances in %s sum to %d, expected 0", e.Currency, e.Sum)
}

func (e *BalanceIntegrityError) Is(target error) bool {
	return target == ErrBalanceIntegrity
}

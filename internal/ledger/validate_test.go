package ledger

import (
	"errors"
	"math"
	"testing"

	"splitledger/internal/core"
)

func bp(v int64) *int64 { return &v }

func TestValidateSplits(t *testing.T) {
	tests := []struct {
		name      string
		in        ValidationInput
		wantValid bool
		wantMsg   string
		wantErr   error
	}{
		{
			name: "equal matching sum",
			in: ValidationInput{
				Method:           core.SplitEqual,
				TotalAmountCents: 100,
				Splits:           []core.ExpenseSplit{{MemberID: "a", AmountCents: 34}, {MemberID: "b", AmountCents: 66}},
			},
			wantValid: true,
		},
		{
			name: "exact off by one",
			in: ValidationInput{
				Method:           core.SplitExact,
				TotalAmountCents: 10000,
				Splits:           []core.ExpenseSplit{{MemberID: "a", AmountCents: 5000}, {MemberID: "b", AmountCents: 4999}},
			},
			wantMsg: "splits sum to 9999, expected 10000",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "percentage valid",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1001,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 334, RawValue: bp(3333)},
					{MemberID: "b", AmountCents: 333, RawValue: bp(3333)},
					{MemberID: "c", AmountCents: 334, RawValue: bp(3334)},
				},
			},
			wantValid: true,
		},
		{
			name: "percentage amounts mismatch",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1000,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 500, RawValue: bp(5000)},
					{MemberID: "b", AmountCents: 400, RawValue: bp(5000)},
				},
			},
			wantMsg: "splits sum to 900, expected 1000",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "percentage basis points mismatch",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1000,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 500, RawValue: bp(5000)},
					{MemberID: "b", AmountCents: 500, RawValue: bp(4999)},
				},
			},
			wantMsg: "percentages sum to 9999 basis points, expected 10000",
			wantErr: ErrPercentageSumMismatch,
		},
		{
			name: "percentage missing raw value",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1000,
				Splits:           []core.ExpenseSplit{{MemberID: "a", AmountCents: 1000}},
			},
			wantMsg: "split for member a is missing a percentage",
			wantErr: ErrMissingRawValue,
		},
		{
			name: "shares valid",
			in: ValidationInput{
				Method:           core.SplitShares,
				TotalAmountCents: 100,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 67, RawValue: bp(2)},
					{MemberID: "b", AmountCents: 33, RawValue: bp(1)},
				},
			},
			wantValid: true,
		},
		{
			name: "shares all zero weight does not balance",
			in: ValidationInput{
				Method:           core.SplitShares,
				TotalAmountCents: 100,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 0, RawValue: bp(0)},
					{MemberID: "b", AmountCents: 0, RawValue: bp(0)},
				},
			},
			wantMsg: "splits sum to 0, expected 100",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "settlement single split",
			in: ValidationInput{
				Method:           core.SplitSettlement,
				TotalAmountCents: 2500,
				Splits:           []core.ExpenseSplit{{MemberID: "b", AmountCents: 2500}},
			},
			wantValid: true,
		},
		{
			name: "settlement two splits",
			in: ValidationInput{
				Method:           core.SplitSettlement,
				TotalAmountCents: 2500,
				Splits:           []core.ExpenseSplit{{MemberID: "b", AmountCents: 2000}, {MemberID: "c", AmountCents: 500}},
			},
			wantMsg: "settlement must have exactly one split, got 2",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "negative split",
			in: ValidationInput{
				Method:           core.SplitExact,
				TotalAmountCents: 100,
				Splits:           []core.ExpenseSplit{{MemberID: "a", AmountCents: 150}, {MemberID: "b", AmountCents: -50}},
			},
			wantMsg: "split for member b has negative amount -50",
			wantErr: ErrNegativeSplit,
		},
		{
			name: "exact amounts wrap around to the total",
			in: ValidationInput{
				Method:           core.SplitExact,
				TotalAmountCents: 1,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: math.MaxInt64},
					{MemberID: "b", AmountCents: math.MaxInt64},
					{MemberID: "c", AmountCents: 3},
				},
			},
			wantMsg: "splits exceed the maximum amount of 9223372036854775807 cents",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "equal amounts overflow",
			in: ValidationInput{
				Method:           core.SplitEqual,
				TotalAmountCents: math.MaxInt64,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: math.MaxInt64},
					{MemberID: "b", AmountCents: 1},
				},
			},
			wantMsg: "splits exceed the maximum amount of 9223372036854775807 cents",
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "settlement of the largest amount",
			in: ValidationInput{
				Method:           core.SplitSettlement,
				TotalAmountCents: math.MaxInt64,
				Splits:           []core.ExpenseSplit{{MemberID: "b", AmountCents: math.MaxInt64}},
			},
			wantValid: true,
		},
		{
			name: "percentage basis points wrap around to the total",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1000,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 400, RawValue: bp(math.MaxInt64)},
					{MemberID: "b", AmountCents: 300, RawValue: bp(math.MaxInt64)},
					{MemberID: "c", AmountCents: 300, RawValue: bp(10002)},
				},
			},
			wantMsg: "split for member a has 9223372036854775807 basis points, expected 0 to 10000",
			wantErr: ErrBasisPointsRange,
		},
		{
			name: "percentage negative basis points offset",
			in: ValidationInput{
				Method:           core.SplitPercentage,
				TotalAmountCents: 1000,
				Splits: []core.ExpenseSplit{
					{MemberID: "a", AmountCents: 500, RawValue: bp(15000)},
					{MemberID: "b", AmountCents: 500, RawValue: bp(-5000)},
				},
			},
			wantMsg: "split for member a has 15000 basis points, expected 0 to 10000",
			wantErr: ErrBasisPointsRange,
		},
		{
			name:    "no splits",
			in:      ValidationInput{Method: core.SplitEqual, TotalAmountCents: 100},
			wantMsg: "at least one split is required",
			wantErr: ErrNoSplits,
		},
		{
			name: "unknown method",
			in: ValidationInput{
				TotalAmountCents: 100,
				Splits:           []core.ExpenseSplit{{MemberID: "a", AmountCents: 100}},
			},
			wantErr: core.ErrUnknownSplitMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSplits(tt.in)
			if got.IsValid != tt.wantValid {
				t.Fatalf("ValidateSplits().IsValid = %v, want %v (error %q)", got.IsValid, tt.wantValid, got.Error)
			}
			if tt.wantValid {
				if got.Error != "" || got.Err != nil {
					t.Fatalf("valid result carries error %q / %v", got.Error, got.Err)
				}
				return
			}
			if tt.wantMsg != "" && got.Error != tt.wantMsg {
				t.Errorf("ValidateSplits().Error = %q, want %q", got.Error, tt.wantMsg)
			}
			if !errors.Is(got.Err, tt.wantErr) {
				t.Errorf("ValidateSplits().Err = %v, want %v", got.Err, tt.wantErr)
			}
		})
	}
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"splitledger/internal/ledger"
	"splitledger/internal/services"
	"splitledger/internal/storage"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &services.ValidationError{Message: "splits sum to 90, expected 100", Err: ledger.ErrSplitSumMismatch}, want: http.StatusUnprocessableEntity},
		{name: "wrapped validation", err: fmt.Errorf("create: %w", &services.ValidationError{Message: "bad"}), want: http.StatusUnprocessableEntity},
		{name: "not found", err: fmt.Errorf("group g1: %w", storage.ErrNotFound), want: http.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("member m1: %w", storage.ErrAlreadyExists), want: http.StatusConflict},
		{name: "integrity", err: fmt.Errorf("build summary: %w", &ledger.BalanceIntegrityError{Sum: 1}), want: http.StatusInternalServerError},
		{name: "other", err: errors.New("disk full"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/groups/g1/debts", nil)
	writeServiceError(rr, r, errors.New("pq: connection reset by peer"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("error = %q, want %q", body.Error, "internal error")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

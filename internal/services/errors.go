package services

import "errors"

var (
	ErrNotMember       = errors.New("not a member of the group")
	ErrSelfSettlement  = errors.New("cannot settle with yourself")
	ErrNoParticipants  = errors.New("at least one participant is required")
	ErrSettlementSplit = errors.New("settlements are recorded through RecordSettlement")
)

// ValidationError is a rejected write. Message is safe to show to users and
// Err, when set, is the underlying sentinel.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) *ValidationError {
	return &ValidationError{Message: err.Error(), Err: err}
}

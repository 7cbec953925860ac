package core

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidFilter      = errors.New("invalid filter")

	ErrNotFound = errors.New("not found")

	// Runway preconditions. Callers surface these as messages, not failures.
	ErrInvalidTarget     = errors.New("target date must be after today")
	ErrInsufficientFunds = errors.New("no positive cash balance to spread")
)

// ValidationError ties an input problem to the field that caused it.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

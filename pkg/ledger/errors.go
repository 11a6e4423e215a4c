package ledger

import "errors"

var (
	// ErrInvalidInput marks malformed or missing input. Callers wrap it with
	// the offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the actor's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	ErrUserNotFound       = errors.New("user not found")
	ErrDepositNotFound    = errors.New("setoran not found")
	ErrWithdrawalNotFound = errors.New("pencairan not found")

	// ErrAlreadyProcessed is the conflict returned when a setoran or pencairan
	// has already left the pending state.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrInsufficientBalance is returned when saldo cannot cover a withdrawal.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

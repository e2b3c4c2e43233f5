package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a reservation asks for more
	// units than the product has available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidState is returned when an operation is not permitted in the
	// order's current status, e.g. mutating items after shipment.
	ErrInvalidState = errors.New("operation not permitted in current order state")

	// ErrInvalidTransition is returned when a status change is not in the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrContention is returned after bounded retries of a conflicting
	// transaction are exhausted.
	ErrContention = errors.New("transaction contention, retry later")

	// ErrValidation is returned for malformed input such as a non-positive
	// quantity.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signals a retryable transaction conflict (deadlock or
	// lock-wait timeout). Storage adapters return it; the service layer
	// retries and maps exhaustion to ErrContention. It never crosses the
	// service boundary.
	ErrConflict = errors.New("transaction conflict")
)

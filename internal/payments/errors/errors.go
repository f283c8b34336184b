package errors

import "errors"

var (
	ErrNotFound = errors.New("payment event not found")

	// ErrGatewayTimeout is returned when a gateway call outlives its context.
	ErrGatewayTimeout = errors.New("payment gateway timed out")

	ErrMissingPaymentID = errors.New("payment id is required")
)

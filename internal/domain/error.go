package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrForbidden          = errors.New("operation not permitted for this account")
	ErrConflict           = errors.New("entity was modified concurrently")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")

	// Listing lifecycle
	ErrQuotaExhausted         = errors.New("free listing quota exhausted")
	ErrInvalidPlan            = errors.New("requested plan is not in the catalog")
	ErrTerminalStateViolation = errors.New("listing is sold or removed")

	// Payments
	ErrInvalidPhoneNumber = errors.New("invalid mobile number")
	ErrGatewayTimeout     = errors.New("payment gateway timed out")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrDuplicateCallback  = errors.New("payment already resolved")
	ErrPaymentInProgress  = errors.New("another payment for this listing is being initiated")
)

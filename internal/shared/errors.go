package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote service errors. A failed read aborts the operation before anything is persisted; a failed write
	// leaves earlier batches of the same operation applied.
	ErrRemoteRead         = fmt.Errorf("remote read failed")
	ErrRemoteWrite        = fmt.Errorf("remote write failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Library cache errors
	ErrCorruptCache = fmt.Errorf("corrupt cache snapshot")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Provider and sync errors
	ErrConfiguration      = fmt.Errorf("provider configuration error")
	ErrLibraryAccess      = fmt.Errorf("library access error")
	ErrFetch              = fmt.Errorf("provider fetch failed")
	ErrUnknownProvider    = fmt.Errorf("unknown provider")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Catalog errors
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidEntity = fmt.Errorf("invalid entity")

	// Client input errors
	ErrDecode          = fmt.Errorf("malformed cursor")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Extension errors
	ErrExtension         = fmt.Errorf("extension error")
	ErrExtensionTimeout  = fmt.Errorf("extension call timed out")
	ErrExtensionExited   = fmt.Errorf("extension process exited")
	ErrExtensionResponse = fmt.Errorf("malformed extension response")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Player errors
	ErrQueueEmpty = fmt.Errorf("queue is empty")
)

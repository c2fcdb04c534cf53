package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthorized = fmt.Errorf("authorization required")
	ErrAuthRevoked   = fmt.Errorf("authorization revoked")
	ErrAuthFailed    = fmt.Errorf("authentication failed")
	ErrScopeMissing  = fmt.Errorf("token missing required scope")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// API and playback errors
	ErrTransient         = fmt.Errorf("transient API failure")
	ErrNotFound          = fmt.Errorf("resource not found")
	ErrNoDevice          = fmt.Errorf("no playback device available")
	ErrDeviceUnreachable = fmt.Errorf("playback device unreachable")

	// Tag and reader errors
	ErrInvalidTag = fmt.Errorf("invalid tag payload")
	ErrReader     = fmt.Errorf("reader fault")
	ErrNoReader   = fmt.Errorf("no tag reader available")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

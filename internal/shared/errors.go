package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrForbidden        = fmt.Errorf("permission denied")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrSessionExpired   = fmt.Errorf("calendar session expired")

	// Upstream service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrUpstreamAuth     = fmt.Errorf("upstream authentication failed")
	ErrUpstreamNotFound = fmt.Errorf("upstream resource not found")
	ErrRateLimited      = fmt.Errorf("upstream rate limit exceeded")

	// Domain errors
	ErrNotFound           = fmt.Errorf("record not found")
	ErrDuplicate          = fmt.Errorf("record already exists")
	ErrUnresolvedConflict = fmt.Errorf("unresolved merge conflict")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

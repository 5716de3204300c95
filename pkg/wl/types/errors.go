package types

import "errors"

var (
	// Caller errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidSymbol = errors.New("symbol is required")

	// Watchlist state errors
	ErrAlreadyExists = errors.New("already in watchlist")
	ErrNotFound      = errors.New("not found in watchlist")

	// Collaborator errors, recovered before reaching the end caller
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	ErrPersistence   = errors.New("persistence failure")
)

// Result reports the outcome of a watchlist mutation without raising.
// Err is nil on success and otherwise matches one of the sentinels above.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Ok builds a successful Result.
func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail builds a failed Result carrying err.
func Fail(err error, message string) Result {
	return Result{Success: false, Message: message, Err: err}
}

// Is reports whether the result failed with target.
func (r Result) Is(target error) bool {
	return r.Err != nil && errors.Is(r.Err, target)
}

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch is returned when /callback carries a state that does
	// not match the state cookie set by /login.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrMissingToken means no access token is available, either because
	// nobody logged in yet or because the auth server could not be reached.
	ErrMissingToken = errors.New("access token not found")
)

// Callback error codes placed in the redirect fragment.
const (
	CodeStateMismatch = "state_mismatch"
	CodeInvalidToken  = "invalid_token"
)

// ExchangeError wraps a failed authorization code exchange.
type ExchangeError struct {
	Err error
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("code exchange failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// errorCode maps a callback failure to the code reported to the browser.
func errorCode(err error) string {
	if errors.Is(err, ErrStateMismatch) {
		return CodeStateMismatch
	}
	return CodeInvalidToken
}

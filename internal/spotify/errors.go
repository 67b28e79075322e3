package spotify

import (
	"errors"
	"fmt"

	spotifyapi "github.com/zmb3/spotify/v2"
)

var (
	// ErrMissingToken is returned when an operation is called without an
	// access token. No request is made.
	ErrMissingToken = errors.New("missing access token")

	// ErrIDResolution is returned by Playlists when the current user's id
	// could not be determined. No playlist request is made.
	ErrIDResolution = errors.New("failed to resolve spotify user id")
)

// APIError is a non-success response from the Spotify Web API.
type APIError struct {
	StatusCode int
	// Message is the message field of the Spotify error object, if present.
	Message string

	err error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify api returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify api returned status %d", e.StatusCode)
}

// Unwrap returns the SDK error.
func (e *APIError) Unwrap() error {
	return e.err
}

// newAPIError maps an SDK error onto APIError. Errors without a response
// status, such as transport failures, are returned unchanged.
func newAPIError(status int, err error) error {
	var sdkErr spotifyapi.Error
	if errors.As(err, &sdkErr) {
		if sdkErr.Status != 0 {
			status = sdkErr.Status
		}
		return &APIError{StatusCode: status, Message: sdkErr.Message, err: err}
	}
	if status >= 400 {
		return &APIError{StatusCode: status, err: err}
	}
	return err
}

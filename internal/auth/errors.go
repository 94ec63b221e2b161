package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrMalformedKey = errors.New("malformed identity key")

	// ErrIdentityResolution marks a session whose principal could not be
	// turned back into a live user record.
	ErrIdentityResolution = errors.New("identity resolution failed")

	ErrNoAuthLevel = &ConfigError{Msg: "user does not have an authentication level set"}
)

// ConfigError is a startup or programming error. It is never caused by a
// request and must not be answered as one.
type ConfigError struct {
	Msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// AuthenticationError is a per-request authentication failure. Token holds
// the offending credential for audit logs only; it must never be rendered.
type AuthenticationError struct {
	Provider string
	Reason   string
	Token    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (%s): %s", e.Provider, e.Reason)
}

// IsAuthDomain reports whether err belongs to the authentication domain,
// meaning the right answer is to log the user out rather than fail.
func IsAuthDomain(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthenticationError
	return errors.Is(err, ErrIdentityResolution) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.As(err, &authErr)
}

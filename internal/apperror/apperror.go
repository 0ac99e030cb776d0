// Package apperror defines the closed set of failures the auth core can
// surface. Every error that crosses the service boundary is one of the
// values below (possibly wrapping a cause) and carries the HTTP status the
// handler layer must emit. Raw driver or infrastructure errors are never
// returned past a repository; they are wrapped as Internal at the point of
// failure.
package apperror

import "net/http"

// Error is a tagged error with a stable machine code and an HTTP status.
type Error struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches by code so that a wrapped copy compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of e carrying cause. The copy still satisfies
// errors.Is against the original sentinel.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the message is deliberately identical for the two cases.
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}

	// ErrInvalidOrExpiredToken covers refresh, magic-link, reset and
	// verification tokens uniformly.
	ErrInvalidOrExpiredToken = &Error{Status: http.StatusUnauthorized, Code: "invalid_or_expired_token", Message: "Invalid or expired token"}

	ErrInvalidOrExpiredOTP = &Error{Status: http.StatusUnauthorized, Code: "invalid_or_expired_otp", Message: "Invalid or expired OTP"}

	// ErrNoToken: the Authorization header is missing or not a bearer.
	ErrNoToken = &Error{Status: http.StatusUnauthorized, Code: "no_token", Message: "No token provided"}

	// ErrTokenExpired: the access token expired and no refresh was possible.
	ErrTokenExpired = &Error{Status: http.StatusUnauthorized, Code: "token_expired", Message: "Token expired"}

	// ErrInvalidToken: malformed or bad signature; never triggers a refresh.
	ErrInvalidToken = &Error{Status: http.StatusUnauthorized, Code: "invalid_token", Message: "Invalid token"}

	ErrForbidden = &Error{Status: http.StatusForbidden, Code: "forbidden", Message: "Forbidden"}

	ErrNotFound = &Error{Status: http.StatusNotFound, Code: "not_found", Message: "User not found"}

	// ErrDuplicateEmail is the 23505 unique violation on users.email,
	// translated at the repository boundary.
	ErrDuplicateEmail = &Error{Status: http.StatusConflict, Code: "duplicate_entry", Message: "Email already registered"}
)

// Validation builds a 400 error from a boundary schema failure.
func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation_error", Message: msg}
}

// Internal wraps an unexpected store or infrastructure failure. The cause is
// kept for logging and dev-mode responses but never shown in production.
func Internal(cause error) *Error {
	return (&Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal Server Error"}).WithCause(cause)
}

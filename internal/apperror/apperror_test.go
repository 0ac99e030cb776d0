package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestWithCauseMatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := ErrInvalidOrExpiredToken.WithCause(cause)

	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatal("wrapped error does not match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("matched a different sentinel")
	}
}

func TestInternalCarries500(t *testing.T) {
	err := Internal(errors.New("db down"))
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", err.Status)
	}
	// The public message must not leak the cause.
	if err.Message != "Internal Server Error" {
		t.Fatalf("message = %q", err.Message)
	}
}

func TestValidationStatus(t *testing.T) {
	if err := Validation("bad email"); err.Status != http.StatusBadRequest || err.Message != "bad email" {
		t.Fatalf("unexpected: %+v", err)
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("status 404")
	err := fmt.Errorf("download: %w", WrapError(ErrCredentialRejected, cause, "select a key again"))

	if !errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("expected credential kind in chain")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if errors.Is(err, ErrBackend) {
		t.Fatalf("credential rejection must not match backend error")
	}
	if got := KindOf(err); got != ErrCredentialRejected {
		t.Fatalf("KindOf = %v, want %v", got, ErrCredentialRejected)
	}
}

func TestKindOfDefaultsToBackend(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != ErrBackend {
		t.Fatalf("KindOf = %v, want %v", got, ErrBackend)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(NewError(ErrConfiguration, "API key is missing")) {
		t.Fatalf("configuration errors are not retryable")
	}
	if !Retryable(NewError(ErrEmptyResult, "no image")) {
		t.Fatalf("empty results are retryable")
	}
}

package purchase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

func asFiberError(t *testing.T, err error) *fiber.Error {
	t.Helper()
	var fErr *fiber.Error
	if !errors.As(err, &fErr) {
		t.Fatalf("expected *fiber.Error, got %T: %v", err, err)
	}
	return fErr
}

func TestMapErrorKnownFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"insufficient funds", wallet.ErrInsufficientFunds, http.StatusBadRequest},
		{"wallet not found", wallet.ErrNotFound, http.StatusNotFound},
		{"not owner", ErrNotOwner, http.StatusForbidden},
		{"bad input", fmt.Errorf("%w: amount must be positive", errBadInput), http.StatusBadRequest},
		{"compensation failure", &CompensationError{Amount: 500, Err: errors.New("credit rejected")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fErr := asFiberError(t, mapError(tc.err))
			if fErr.Code != tc.code {
				t.Fatalf("code = %d, want %d", fErr.Code, tc.code)
			}
		})
	}
}

func TestMapErrorUnknownFailureDoesNotLeak(t *testing.T) {
	cause := errors.New("pgx: connection refused to db.internal:5432")

	fErr := asFiberError(t, mapError(cause))
	if fErr.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", fErr.Code)
	}
	if strings.Contains(fErr.Message, "pgx") || strings.Contains(fErr.Message, "db.internal") {
		t.Fatalf("response message leaks internals: %q", fErr.Message)
	}
}

package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("gone"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range tests {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			if got := tc.err.StatusCode(); got != tc.status {
				t.Errorf("StatusCode() = %d, want %d", got, tc.status)
			}
			if got := tc.err.GRPCCode(); got != tc.code {
				t.Errorf("GRPCCode() = %v, want %v", got, tc.code)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := Internal("query failed", WithCause(cause))

	if !errors.Is(appErr, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if got, want := appErr.Error(), "query failed: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("handler: %w", appErr)
	var recovered *AppError
	if !errors.As(wrapped, &recovered) {
		t.Fatal("errors.As should recover the AppError")
	}
	if recovered.Kind() != KindInternal {
		t.Errorf("Kind() = %q, want %q", recovered.Kind(), KindInternal)
	}
}

func TestDetails(t *testing.T) {
	appErr := BadRequest("validation failed",
		WithDetail("field", "status"),
		WithDetails(map[string]any{"value": "Shipped"}),
	)

	details := appErr.Details()
	if details["field"] != "status" {
		t.Errorf("details[field] = %v, want status", details["field"])
	}
	if details["value"] != "Shipped" {
		t.Errorf("details[value] = %v, want Shipped", details["value"])
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}

	original := NotFound("order not found")
	if got := From(fmt.Errorf("service: %w", original)); got != original {
		t.Error("From should return the original AppError when wrapped")
	}

	plain := From(errors.New("disk full"))
	if plain.Kind() != KindInternal {
		t.Errorf("From(plain).Kind() = %q, want %q", plain.Kind(), KindInternal)
	}
	if plain.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", plain.StatusCode())
	}
}

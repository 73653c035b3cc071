package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindValidation:   http.StatusUnprocessableEntity,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("load product: %w", NotFound("Product not found"))
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %s", KindOf(err))
	}
	if !errors.Is(err, NotFound("")) {
		t.Fatalf("expected errors.Is to match by kind")
	}
	if errors.Is(err, Forbidden("")) {
		t.Fatalf("unexpected match on forbidden")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("expected unclassified errors to be internal")
	}
}

func TestAsHidesInternalCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	appErr := As(cause)
	if appErr.Kind != KindInternal {
		t.Fatalf("expected internal kind, got %s", appErr.Kind)
	}
	if appErr.Message != "internal error" {
		t.Fatalf("cause leaked into message: %q", appErr.Message)
	}
	if !errors.Is(appErr, cause) {
		t.Fatalf("expected cause to be unwrappable")
	}
}

package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sourzka.org/internal/ids"
)

func TestCanonicalPath(t *testing.T) {
	id := ids.New()
	cases := map[string]string{
		"":                                          "/",
		"/metrics":                                  "/metrics",
		"/v1/products/" + id:                        "/v1/products/:id",
		"/v1/products/" + id + "/toggle-status":     "/v1/products/:id/toggle-status",
		"/v1/products/not-an-id":                    "/v1/products/not-an-id",
		"/v1/admin/manufacturers?page=2":            "/v1/admin/manufacturers",
		"/v1/admin/manufacturers/" + id + "/verify": "/v1/admin/manufacturers/:id/verify",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/v1/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/things/abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/things/{id}", "418"))
	if got != 1 {
		t.Fatalf("expected one request recorded under route pattern, got %v", got)
	}
}

func TestResolveCommitPrefersExplicitValue(t *testing.T) {
	if got := resolveCommit("abc123"); got != "abc123" {
		t.Fatalf("expected explicit commit, got %q", got)
	}
	if got := resolveCommit("dev"); got == "" || got == "dev" {
		t.Fatalf("expected dev to be resolved, got %q", got)
	}
}

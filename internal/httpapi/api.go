package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/marketplace"
	"sourzka.org/internal/obs"
)

const serviceName = "sourzka-api"

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the transport layer.
type Options struct {
	Version      string
	Readiness    Pinger
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string
	// LocalOrigins also admits http://localhost and http://127.0.0.1 origins.
	LocalOrigins bool
}

// API is the HTTP surface of the marketplace.
type API struct {
	router     chi.Router
	svc        *marketplace.Service
	authz      *auth.Authorizer
	readiness  Pinger
	version    string
	rateBurst  int
	ratePerSec int
	maxBody    int64
	origins    []string
	local      bool
}

func New(svc *marketplace.Service, authz *auth.Authorizer, opts Options) *API {
	a := &API{
		svc:        svc,
		authz:      authz,
		readiness:  opts.Readiness,
		version:    opts.Version,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSec,
		maxBody:    opts.MaxBodyBytes,
		origins:    opts.CORSOrigins,
		local:      opts.LocalOrigins,
	}
	if a.readiness == nil && svc != nil {
		a.readiness = svc
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBody <= 0 {
		a.maxBody = 1 << 20
	}
	a.router = a.routes()
	return a
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(obs.Instrument)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	manufacturerOnly := []auth.Role{auth.RoleManufacturer}
	marketRoles := []auth.Role{auth.RoleManufacturer, auth.RoleBuyer}
	staff := []auth.Role{auth.RoleStaff, auth.RoleSuperadmin}

	r.Route("/v1/manufacturer", func(r chi.Router) {
		r.Post("/signup", a.signupManufacturer)
		r.Post("/signin", a.signinManufacturer)
		r.Group(func(r chi.Router) {
			r.Use(a.authorize(auth.ModeAuto, manufacturerOnly...))
			r.Post("/onboard", a.onboard)
			r.Get("/profile", a.profile)
			r.Put("/profile", a.updateProfile)
			r.Post("/legal-documents", a.addLegalDocument)
			r.Patch("/toggle-staff-review", a.toggleOwnReview)
			r.Post("/verify-gstin", a.verifyGSTIN)
		})
	})

	r.Route("/v1/buyer", func(r chi.Router) {
		r.Post("/signup", a.signupBuyer)
		r.Post("/signin", a.signinBuyer)
	})

	r.Route("/v1/products", func(r chi.Router) {
		r.With(a.authorize(auth.ModeUser, marketRoles...)).Get("/{id}", a.getProduct)
		r.Group(func(r chi.Router) {
			r.Use(a.authorize(auth.ModeUser, manufacturerOnly...))
			r.Get("/", a.myProducts)
			r.Post("/", a.createProduct)
			r.Put("/{id}", a.updateProduct)
			r.Patch("/{id}/toggle-status", a.toggleProductStatus)
			r.Delete("/{id}", a.deleteProduct)
		})
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Post("/login", a.adminLogin)
		r.Group(func(r chi.Router) {
			r.Use(a.authorize(auth.ModeAdmin, staff...))
			r.Get("/manufacturers", a.listManufacturers)
			r.Get("/manufacturers/{id}", a.manufacturerDetails)
			r.Patch("/manufacturers/{id}/verify", a.setVerification)
			r.Patch("/manufacturers/{id}/toggle-staff-review", a.toggleReview)
		})
		r.With(a.authorize(auth.ModeAdmin, auth.RoleSuperadmin)).Get("/audit-log", a.auditLog)
	})
	return r
}

// Handler returns the router wrapped in the transport middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(a.origins, a.local)(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.readiness.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	policy := a.svc.Policy()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"productGates": map[string]string{
			"update": string(policy.Update),
			"toggle": string(policy.Toggle),
		},
	})
}

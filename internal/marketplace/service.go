package marketplace

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/obs"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) (bool, error)
}

// LegalNameLookup resolves the registered legal name for a GSTIN. It returns
// an empty name without error when the registry has no match.
type LegalNameLookup interface {
	LegalName(ctx context.Context, gstin string) (string, error)
}

// Service implements the marketplace operations on top of a Store.
type Service struct {
	store  Store
	tokens TokenIssuer
	hasher PasswordHasher
	gst    LegalNameLookup
	audit  *audit.Recorder
	policy Policy
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLegalNameLookup sets the GSTIN registry client.
func WithLegalNameLookup(l LegalNameLookup) Option {
	return func(s *Service) { s.gst = l }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires a Service.
func NewService(store Store, tokens TokenIssuer, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("marketplace: store is required")
	}
	if tokens == nil || hasher == nil {
		return nil, errors.New("marketplace: token issuer and password hasher are required")
	}
	s := &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		audit:  audit.NewRecorder(store),
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the active product gates.
func (s *Service) Policy() Policy { return s.policy }

// Ping reports whether the store answers a trivial lookup.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.ManufacturerExists(ctx, "")
	return err
}

func (s *Service) timestamp() time.Time { return s.now().UTC() }

// recordBestEffort appends an audit entry without failing the caller.
func (s *Service) recordBestEffort(ctx context.Context, action audit.Action, resource, resourceID string, meta map[string]any) {
	if _, err := s.audit.Record(ctx, action, resource, resourceID, meta); err != nil {
		obs.FromContext(ctx).Warn("best-effort audit dropped",
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

// storeError translates store sentinels into client-facing errors.
func storeError(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound) && notFound != "":
		return apperr.NotFound(notFound)
	case errors.Is(err, ErrConflict) && conflict != "":
		return apperr.Conflict(conflict)
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.Internal(err)
	}
}

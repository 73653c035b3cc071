package auth

import (
	"context"
	"fmt"
	"strings"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/obs"
)

// Mode selects how a verified principal is re-checked against storage.
type Mode int

const (
	// ModeUser re-checks the manufacturer or buyer record named by the token.
	ModeUser Mode = iota + 1
	// ModeAdmin requires an admin-tier role whose stored role still matches.
	ModeAdmin
	// ModeAuto picks ModeAdmin or ModeUser from the token's role.
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "user"
	case ModeAdmin:
		return "admin"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// CredentialStore answers the existence questions the gate asks on every
// request. Implementations report absence with a false result, not an error.
type CredentialStore interface {
	AdminRole(ctx context.Context, adminID string) (Role, bool, error)
	ManufacturerExists(ctx context.Context, manufacturerID string) (bool, error)
	BuyerExists(ctx context.Context, buyerID string) (bool, error)
}

// TokenVerifier validates a raw session token.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

type revalidateFunc func(ctx context.Context, store CredentialStore, p Principal) error

// Authorizer is the single request gate used by every protected route.
type Authorizer struct {
	tokens TokenVerifier
	store  CredentialStore
	checks map[Mode]revalidateFunc
}

// NewAuthorizer wires the token verifier and credential store.
func NewAuthorizer(tokens TokenVerifier, store CredentialStore) *Authorizer {
	return &Authorizer{
		tokens: tokens,
		store:  store,
		checks: map[Mode]revalidateFunc{
			ModeAdmin: revalidateAdmin,
			ModeUser:  revalidateUser,
			ModeAuto:  revalidateAuto,
		},
	}
}

// Authorize validates the Authorization header, checks the role against
// allowed and re-validates the principal in storage. Failures are returned
// as *apperr.Error values carrying the client-facing message.
func (a *Authorizer) Authorize(ctx context.Context, header string, allowed []Role, mode Mode) (Principal, error) {
	p, err := a.authorize(ctx, header, allowed, mode)
	obs.AuthDecisions.WithLabelValues(mode.String(), outcome(err)).Inc()
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (a *Authorizer) authorize(ctx context.Context, header string, allowed []Role, mode Mode) (Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return Principal{}, apperr.Unauthorized(MsgNoToken)
	}
	p, err := a.tokens.Verify(token)
	if err != nil {
		return Principal{}, apperr.Forbidden(MsgForbidden)
	}
	if !containsRole(allowed, p.Role) {
		return Principal{}, apperr.Forbidden(MsgForbidden)
	}
	check, ok := a.checks[mode]
	if !ok {
		return Principal{}, apperr.Internal(fmt.Errorf("authorize: unknown mode %s", mode))
	}
	if err := check(ctx, a.store, p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func revalidateAdmin(ctx context.Context, store CredentialStore, p Principal) error {
	if p.UserID == "" {
		return apperr.Unauthorized(MsgInvalidAdmin)
	}
	if !p.IsAdmin() {
		return apperr.Unauthorized(MsgExpiredAdmin)
	}
	role, found, err := store.AdminRole(ctx, p.UserID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("load admin %s: %w", p.UserID, err))
	}
	if !found || role != p.Role {
		return apperr.Unauthorized(MsgExpiredAdmin)
	}
	return nil
}

func revalidateUser(ctx context.Context, store CredentialStore, p Principal) error {
	switch p.Role {
	case RoleManufacturer:
		if p.ManufacturerID == "" {
			return apperr.Unauthorized(MsgInvalidManufacturer)
		}
		found, err := store.ManufacturerExists(ctx, p.ManufacturerID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("load manufacturer %s: %w", p.ManufacturerID, err))
		}
		if !found {
			return apperr.Unauthorized(MsgInvalidManufacturer)
		}
	case RoleBuyer:
		if p.BuyerID == "" {
			return apperr.Unauthorized(MsgInvalidBuyer)
		}
		found, err := store.BuyerExists(ctx, p.BuyerID)
		if err != nil {
			return apperr.Internal(fmt.Errorf("load buyer %s: %w", p.BuyerID, err))
		}
		if !found {
			return apperr.Unauthorized(MsgInvalidBuyer)
		}
	}
	return nil
}

func revalidateAuto(ctx context.Context, store CredentialStore, p Principal) error {
	if p.IsAdmin() {
		return revalidateAdmin(ctx, store, p)
	}
	return revalidateUser(ctx, store, p)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func outcome(err error) string {
	if err == nil {
		return "allowed"
	}
	return strings.ToLower(apperr.KindOf(err).String())
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"sourzka.org/internal/apperr"
)

type fakeCredentials struct {
	admins        map[string]Role
	manufacturers map[string]bool
	buyers        map[string]bool
	err           error
}

func (f *fakeCredentials) AdminRole(_ context.Context, id string) (Role, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	role, ok := f.admins[id]
	return role, ok, nil
}

func (f *fakeCredentials) ManufacturerExists(_ context.Context, id string) (bool, error) {
	return f.manufacturers[id], f.err
}

func (f *fakeCredentials) BuyerExists(_ context.Context, id string) (bool, error) {
	return f.buyers[id], f.err
}

func newTestAuthorizer(t *testing.T, store *fakeCredentials) (*Authorizer, *Codec) {
	t.Helper()
	codec, err := NewCodec("authz-secret", WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return NewAuthorizer(codec, store), codec
}

func bearerFor(t *testing.T, codec *Codec, p Principal) string {
	t.Helper()
	token, _, err := codec.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + token
}

func expectFailure(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s failure", kind)
	}
	e := apperr.As(err)
	if e.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, e.Kind, err)
	}
	if msg != "" && e.Message != msg {
		t.Fatalf("expected message %q, got %q", msg, e.Message)
	}
}

func TestAuthorizeMissingToken(t *testing.T) {
	a, _ := newTestAuthorizer(t, &fakeCredentials{})
	for _, header := range []string{"", "Bearer ", "Basic abc"} {
		_, err := a.Authorize(context.Background(), header, []Role{RoleBuyer}, ModeUser)
		expectFailure(t, err, apperr.KindUnauthorized, MsgNoToken)
	}
}

func TestAuthorizeInvalidTokenIsForbidden(t *testing.T) {
	a, _ := newTestAuthorizer(t, &fakeCredentials{})
	_, err := a.Authorize(context.Background(), "Bearer garbage", []Role{RoleBuyer}, ModeUser)
	expectFailure(t, err, apperr.KindForbidden, MsgForbidden)
}

func TestAuthorizeDisallowedRole(t *testing.T) {
	store := &fakeCredentials{buyers: map[string]bool{"b1": true}}
	a, codec := newTestAuthorizer(t, store)
	header := bearerFor(t, codec, Principal{UserID: "u1", Role: RoleBuyer, BuyerID: "b1"})

	_, err := a.Authorize(context.Background(), header, []Role{RoleManufacturer}, ModeUser)
	expectFailure(t, err, apperr.KindForbidden, MsgForbidden)
}

func TestAuthorizeUserMode(t *testing.T) {
	store := &fakeCredentials{manufacturers: map[string]bool{"m1": true}, buyers: map[string]bool{"b1": true}}
	a, codec := newTestAuthorizer(t, store)
	ctx := context.Background()

	p, err := a.Authorize(ctx, bearerFor(t, codec, Principal{UserID: "u1", Role: RoleManufacturer, ManufacturerID: "m1"}), []Role{RoleManufacturer}, ModeUser)
	if err != nil {
		t.Fatalf("Authorize manufacturer: %v", err)
	}
	if p.ManufacturerID != "m1" {
		t.Fatalf("unexpected principal %+v", p)
	}

	stale := bearerFor(t, codec, Principal{UserID: "u2", Role: RoleManufacturer, ManufacturerID: "gone"})
	_, err = a.Authorize(ctx, stale, []Role{RoleManufacturer}, ModeUser)
	expectFailure(t, err, apperr.KindUnauthorized, MsgInvalidManufacturer)

	staleBuyer := bearerFor(t, codec, Principal{UserID: "u3", Role: RoleBuyer, BuyerID: "gone"})
	_, err = a.Authorize(ctx, staleBuyer, []Role{RoleBuyer}, ModeUser)
	expectFailure(t, err, apperr.KindUnauthorized, MsgInvalidBuyer)

	noProfile := bearerFor(t, codec, Principal{UserID: "u4", Role: RoleBuyer})
	_, err = a.Authorize(ctx, noProfile, []Role{RoleBuyer}, ModeUser)
	expectFailure(t, err, apperr.KindUnauthorized, MsgInvalidBuyer)
}

func TestAuthorizeAdminMode(t *testing.T) {
	store := &fakeCredentials{admins: map[string]Role{"a1": RoleStaff}}
	a, codec := newTestAuthorizer(t, store)
	ctx := context.Background()

	if _, err := a.Authorize(ctx, bearerFor(t, codec, Principal{UserID: "a1", Role: RoleStaff}), AdminRoles, ModeAdmin); err != nil {
		t.Fatalf("Authorize staff: %v", err)
	}

	// Token claims a role the stored admin no longer holds.
	escalated := bearerFor(t, codec, Principal{UserID: "a1", Role: RoleSuperadmin})
	_, err := a.Authorize(ctx, escalated, AdminRoles, ModeAdmin)
	expectFailure(t, err, apperr.KindUnauthorized, MsgExpiredAdmin)

	unknown := bearerFor(t, codec, Principal{UserID: "a9", Role: RoleModerator})
	_, err = a.Authorize(ctx, unknown, AdminRoles, ModeAdmin)
	expectFailure(t, err, apperr.KindUnauthorized, MsgExpiredAdmin)

	buyer := bearerFor(t, codec, Principal{UserID: "u1", Role: RoleBuyer, BuyerID: "b1"})
	_, err = a.Authorize(ctx, buyer, []Role{RoleBuyer, RoleStaff}, ModeAdmin)
	expectFailure(t, err, apperr.KindUnauthorized, MsgExpiredAdmin)
}

func TestAuthorizeAutoMode(t *testing.T) {
	store := &fakeCredentials{
		admins:        map[string]Role{"a1": RoleModerator},
		manufacturers: map[string]bool{"m1": true},
	}
	a, codec := newTestAuthorizer(t, store)
	ctx := context.Background()
	allowed := []Role{RoleManufacturer, RoleModerator}

	if _, err := a.Authorize(ctx, bearerFor(t, codec, Principal{UserID: "a1", Role: RoleModerator}), allowed, ModeAuto); err != nil {
		t.Fatalf("auto admin: %v", err)
	}
	if _, err := a.Authorize(ctx, bearerFor(t, codec, Principal{UserID: "u1", Role: RoleManufacturer, ManufacturerID: "m1"}), allowed, ModeAuto); err != nil {
		t.Fatalf("auto manufacturer: %v", err)
	}
}

func TestAuthorizeStoreFailureIsInternal(t *testing.T) {
	store := &fakeCredentials{err: errors.New("db down")}
	a, codec := newTestAuthorizer(t, store)

	_, err := a.Authorize(context.Background(), bearerFor(t, codec, Principal{UserID: "a1", Role: RoleStaff}), AdminRoles, ModeAdmin)
	expectFailure(t, err, apperr.KindInternal, "")
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("bearer abc"); !ok || tok != "abc" {
		t.Fatalf("expected case-insensitive scheme, got %q %v", tok, ok)
	}
	if _, ok := BearerToken("Token abc"); ok {
		t.Fatalf("unexpected scheme accepted")
	}
}

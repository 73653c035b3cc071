package marketplace

import (
	"context"
	"errors"
	"strings"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/ids"
)

const (
	msgEmailInUse            = "Email already in use"
	msgUserNotFound          = "User not found"
	msgInvalidCreds          = "Invalid credentials"
	msgNoManufacturer        = "Manufacturer not found"
	msgNoBuyer               = "Buyer not found"
	msgNoManufacturerProfile = "Manufacturer profile not found"
)

// SignupResult identifies the account created by a signup.
type SignupResult struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	BuyerID        string `json:"buyerId,omitempty"`
}

// SignupManufacturer creates a MANUFACTURER user with an unverified profile.
func (s *Service) SignupManufacturer(ctx context.Context, in SignupInput) (SignupResult, error) {
	user, err := s.newUser(ctx, in, auth.RoleManufacturer)
	if err != nil {
		return SignupResult{}, err
	}
	m := Manufacturer{
		ID:           ids.New(),
		UserID:       user.ID,
		CompanyName:  user.Name,
		Keywords:     []string{},
		Certificates: []string{},
		Gallery:      []string{},
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.CreatedAt,
	}
	if err := s.store.CreateManufacturerAccount(ctx, user, m); err != nil {
		return SignupResult{}, storeError(err, "", msgEmailInUse)
	}
	return SignupResult{ID: user.ID, Email: user.Email, ManufacturerID: m.ID}, nil
}

// SignupBuyer creates a BUYER user with its buyer profile.
func (s *Service) SignupBuyer(ctx context.Context, in SignupInput) (SignupResult, error) {
	user, err := s.newUser(ctx, in, auth.RoleBuyer)
	if err != nil {
		return SignupResult{}, err
	}
	b := Buyer{ID: ids.New(), UserID: user.ID, CreatedAt: user.CreatedAt, UpdatedAt: user.CreatedAt}
	if err := s.store.CreateBuyerAccount(ctx, user, b); err != nil {
		return SignupResult{}, storeError(err, "", msgEmailInUse)
	}
	return SignupResult{ID: user.ID, Email: user.Email, BuyerID: b.ID}, nil
}

// SigninManufacturer authenticates a MANUFACTURER and issues a session token
// carrying its manufacturer id.
func (s *Service) SigninManufacturer(ctx context.Context, in SigninInput) (Session, error) {
	user, err := s.validateUser(ctx, in)
	if err != nil {
		return Session{}, err
	}
	if user.Role != auth.RoleManufacturer {
		return Session{}, apperr.NotFound(msgNoManufacturer)
	}
	m, err := s.store.ManufacturerByUserID(ctx, user.ID)
	if err != nil {
		return Session{}, storeError(err, msgNoManufacturerProfile, "")
	}
	return s.issueSession(user, auth.Principal{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		ManufacturerID: m.ID,
	})
}

// SigninBuyer authenticates a BUYER and issues a session token carrying its
// buyer id.
func (s *Service) SigninBuyer(ctx context.Context, in SigninInput) (Session, error) {
	user, err := s.validateUser(ctx, in)
	if err != nil {
		return Session{}, err
	}
	if user.Role != auth.RoleBuyer {
		return Session{}, apperr.NotFound(msgNoBuyer)
	}
	b, err := s.store.BuyerByUserID(ctx, user.ID)
	if err != nil {
		return Session{}, storeError(err, msgNoBuyer, "")
	}
	return s.issueSession(user, auth.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		BuyerID: b.ID,
	})
}

// AdminLogin authenticates a staff account. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *Service) AdminLogin(ctx context.Context, in SigninInput) (Session, error) {
	if err := CheckInput(in); err != nil {
		return Session{}, err
	}
	admin, err := s.store.AdminByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, ErrNotFound) {
		return Session{}, apperr.Unauthorized(msgInvalidCreds)
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	ok, err := s.hasher.Compare(ctx, admin.PasswordHash, in.Password)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	if !ok {
		return Session{}, apperr.Unauthorized(msgInvalidCreds)
	}

	principal := auth.Principal{UserID: admin.ID, Email: admin.Email, Role: admin.Role}
	session, err := s.issueSession(admin, principal)
	if err != nil {
		return Session{}, err
	}
	s.recordBestEffort(auth.ContextWithPrincipal(ctx, principal), audit.ActionAdminLogin, audit.ResourceAdmin, admin.ID, map[string]any{
		"email":     admin.Email,
		"timestamp": s.timestamp(),
	})
	return session, nil
}

// CreateAdmin provisions a staff account.
func (s *Service) CreateAdmin(ctx context.Context, in CreateAdminInput) (Admin, error) {
	in.Email = strings.TrimSpace(in.Email)
	if role, ok := auth.ParseRole(string(in.Role)); ok {
		in.Role = role
	}
	if err := CheckInput(in); err != nil {
		return Admin{}, err
	}
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return Admin{}, apperr.Internal(err)
	}
	now := s.timestamp()
	admin := Admin{
		ID:           ids.New(),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return Admin{}, storeError(err, "", msgEmailInUse)
	}
	s.recordBestEffort(ctx, audit.ActionAdminCreated, audit.ResourceAdmin, admin.ID, map[string]any{
		"email": admin.Email,
		"role":  string(admin.Role),
	})
	return admin, nil
}

func (s *Service) newUser(ctx context.Context, in SignupInput, role auth.Role) (User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := CheckInput(in); err != nil {
		return User{}, err
	}
	_, err := s.store.UserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return User{}, apperr.Conflict(msgEmailInUse)
	case !errors.Is(err, ErrNotFound):
		return User{}, apperr.Internal(err)
	}
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return User{}, apperr.Internal(err)
	}
	now := s.timestamp()
	return User{
		ID:           ids.New(),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) validateUser(ctx context.Context, in SigninInput) (User, error) {
	if err := CheckInput(in); err != nil {
		return User{}, err
	}
	user, err := s.store.UserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return User{}, storeError(err, msgUserNotFound, "")
	}
	ok, err := s.hasher.Compare(ctx, user.PasswordHash, in.Password)
	if err != nil {
		return User{}, apperr.Internal(err)
	}
	if !ok {
		return User{}, apperr.Unauthorized(msgInvalidCreds)
	}
	return user, nil
}

func (s *Service) issueSession(account any, p auth.Principal) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(p)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: account}, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "sourzka"

	// DefaultTokenTTL is the session lifetime from issuance.
	DefaultTokenTTL = 14 * 24 * time.Hour
)

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("invalid token")

	errMissingSecret = errors.New("auth secret is not configured")
)

// Claims is the signed session payload.
type Claims struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	BuyerID        string `json:"buyerId,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session token for p that expires ttl after now.
func Issue(p Principal, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errMissingSecret
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be greater than zero")
	}
	if err := p.Validate(); err != nil {
		return "", time.Time{}, err
	}

	now = now.UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:         p.UserID,
		Email:          strings.TrimSpace(p.Email),
		Role:           string(p.Role),
		ManufacturerID: p.ManufacturerID,
		BuyerID:        p.BuyerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, issuer and expiry at now and rebuilds the
// principal. Every failure is reported as ErrInvalidToken.
func Verify(token string, secret []byte, now time.Time) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(secret) == 0 {
		return Principal{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	p := Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           role,
		ManufacturerID: claims.ManufacturerID,
		BuyerID:        claims.BuyerID,
	}
	if err := p.Validate(); err != nil {
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}

// Codec binds the server secret, token lifetime and clock.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec for the given secret.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for p.
func (c *Codec) Issue(p Principal) (string, time.Time, error) {
	return Issue(p, c.secret, c.now(), c.ttl)
}

// Verify validates token and returns its principal.
func (c *Codec) Verify(token string) (Principal, error) {
	return Verify(token, c.secret, c.now())
}

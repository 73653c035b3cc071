package marketplace

import (
	"context"
	"errors"

	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("marketplace: not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("marketplace: conflict")
)

// Store persists marketplace state. Implementations return ErrNotFound and
// ErrConflict for missing rows and uniqueness violations.
type Store interface {
	auth.CredentialStore
	audit.Sink

	CreateManufacturerAccount(ctx context.Context, user User, manufacturer Manufacturer) error
	CreateBuyerAccount(ctx context.Context, user User, buyer Buyer) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)

	CreateAdmin(ctx context.Context, admin Admin) error
	AdminByEmail(ctx context.Context, email string) (Admin, error)

	ManufacturerByID(ctx context.Context, id string) (Manufacturer, error)
	ManufacturerByUserID(ctx context.Context, userID string) (Manufacturer, error)
	UpdateManufacturer(ctx context.Context, manufacturer Manufacturer) error
	// SetManufacturerVerification writes the decision and its audit entry
	// atomically and returns the updated row.
	SetManufacturerVerification(ctx context.Context, id string, verified bool, entry audit.Entry) (Manufacturer, error)
	ListManufacturers(ctx context.Context, filter ManufacturerFilter) ([]Manufacturer, int, error)
	BuyerByUserID(ctx context.Context, userID string) (Buyer, error)

	CreateLegalDocument(ctx context.Context, doc LegalDocument) error
	LegalDocuments(ctx context.Context, manufacturerID string) ([]LegalDocument, error)

	CreateProduct(ctx context.Context, product Product) error
	ProductByID(ctx context.Context, id string) (Product, error)
	UpdateProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, id string) error
	ProductsByManufacturer(ctx context.Context, manufacturerID string) ([]Product, error)

	ListAudit(ctx context.Context, query audit.Query) ([]audit.Entry, error)
}

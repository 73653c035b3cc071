package marketplace

import (
	"context"
	"fmt"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/obs"
)

const (
	defaultPageLimit  = 10
	maxPageLimit      = 100
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ListManufacturers returns one page of manufacturers for staff review,
// newest owners first.
func (s *Service) ListManufacturers(ctx context.Context, f ManufacturerFilter) (ManufacturerPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	rows, total, err := s.store.ListManufacturers(ctx, f)
	if err != nil {
		return ManufacturerPage{}, apperr.Internal(err)
	}
	out := make([]ManufacturerOverview, 0, len(rows))
	for _, m := range rows {
		owner, err := s.store.UserByID(ctx, m.UserID)
		if err != nil {
			return ManufacturerPage{}, apperr.Internal(fmt.Errorf("load owner of %s: %w", m.ID, err))
		}
		products, err := s.store.ProductsByManufacturer(ctx, m.ID)
		if err != nil {
			return ManufacturerPage{}, apperr.Internal(err)
		}
		out = append(out, ManufacturerOverview{
			Manufacturer: m,
			User:         summarizeUser(owner),
			Products:     summarizeProducts(products),
		})
	}
	return ManufacturerPage{
		Manufacturers: out,
		Pagination: Pagination{
			Total: total,
			Page:  f.Page,
			Limit: f.Limit,
			Pages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

// ManufacturerDetails returns the full profile of any manufacturer.
func (s *Service) ManufacturerDetails(ctx context.Context, id string) (ManufacturerProfile, error) {
	m, err := s.store.ManufacturerByID(ctx, id)
	if err != nil {
		return ManufacturerProfile{}, storeError(err, msgNoManufacturer, "")
	}
	return s.profileOf(ctx, m)
}

// SetVerification records a staff decision on a manufacturer. The account is
// always marked as viewed, and the decision and its audit entry are written
// together. Repeating a decision leaves the same state and appends another
// entry.
func (s *Service) SetVerification(ctx context.Context, manufacturerID string, verified bool) (Manufacturer, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok || !p.IsAdmin() {
		return Manufacturer{}, apperr.Forbidden(auth.MsgForbidden)
	}
	current, err := s.store.ManufacturerByID(ctx, manufacturerID)
	if err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	owner, err := s.store.UserByID(ctx, current.UserID)
	if err != nil {
		return Manufacturer{}, apperr.Internal(fmt.Errorf("load owner of %s: %w", current.ID, err))
	}

	action, decision := audit.ActionManufacturerRejected, "rejected"
	if verified {
		action, decision = audit.ActionManufacturerVerified, "verified"
	}
	entry, err := audit.NewEntry(ctx, action, audit.ResourceManufacturer, manufacturerID, map[string]any{
		"manufacturerId": manufacturerID,
		"companyName":    current.CompanyName,
		"userEmail":      owner.Email,
	})
	if err != nil {
		return Manufacturer{}, apperr.Internal(err)
	}
	entry.OccurredAt = s.timestamp()

	updated, err := s.store.SetManufacturerVerification(ctx, manufacturerID, verified, entry)
	if err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	audit.Log(ctx, entry)
	obs.VerificationDecisions.WithLabelValues(decision).Inc()
	return updated, nil
}

// AuditLog lists audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	if q.Limit < 1 {
		q.Limit = defaultAuditLimit
	}
	if q.Limit > maxAuditLimit {
		q.Limit = maxAuditLimit
	}
	entries, err := s.store.ListAudit(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

package marketplace

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/gst"
	"sourzka.org/internal/ids"
	"sourzka.org/internal/obs"
)

const (
	msgGSTINStored        = "GSTIN verified and stored successfully."
	msgGSTINNoProfile     = "Manufacturer profile not found."
	msgGSTINNoLegalName   = "Legal name not found for the provided GSTIN."
	msgGSTINInvalid       = "Invalid GSTIN format."
	msgGSTINUnavailable   = "GSTIN verification failed. Please try again later."
	msgGSTINLookupMissing = "GSTIN verification is not configured."
)

// GSTINResult is the structured outcome of a GSTIN verification. Kind is only
// meaningful when Success is false.
type GSTINResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Name    string      `json:"name,omitempty"`
	Kind    apperr.Kind `json:"-"`
}

// Err converts a failed result into an apperr value, or nil on success.
func (r GSTINResult) Err() error {
	if r.Success {
		return nil
	}
	return apperr.New(r.Kind, r.Message)
}

// Onboard fills in the company profile of the caller's manufacturer.
func (s *Service) Onboard(ctx context.Context, p auth.Principal, in OnboardingInput) (Manufacturer, error) {
	if err := CheckInput(in); err != nil {
		return Manufacturer{}, err
	}
	m, err := s.ownManufacturer(ctx, p)
	if err != nil {
		return Manufacturer{}, err
	}
	m.CompanyName = strings.TrimSpace(in.CompanyName)
	m.FactoryDetails = in.FactoryDetails
	m.Keywords = cloneStrings(in.Keywords)
	m.Certificates = cloneStrings(in.Certificates)
	m.Gallery = cloneStrings(in.Gallery)
	m.IntroVideo = in.IntroVideo
	m.UpdatedAt = s.timestamp()
	if err := s.store.UpdateManufacturer(ctx, m); err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	return m, nil
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, p auth.Principal, in ProfileUpdate) (Manufacturer, error) {
	if err := CheckInput(in); err != nil {
		return Manufacturer{}, err
	}
	m, err := s.ownManufacturer(ctx, p)
	if err != nil {
		return Manufacturer{}, err
	}
	if in.CompanyName != nil {
		m.CompanyName = strings.TrimSpace(*in.CompanyName)
	}
	if in.FactoryDetails != nil {
		m.FactoryDetails = *in.FactoryDetails
	}
	if in.Keywords != nil {
		m.Keywords = cloneStrings(*in.Keywords)
	}
	if in.Certificates != nil {
		m.Certificates = cloneStrings(*in.Certificates)
	}
	if in.Gallery != nil {
		m.Gallery = cloneStrings(*in.Gallery)
	}
	if in.IntroVideo != nil {
		m.IntroVideo = *in.IntroVideo
	}
	m.UpdatedAt = s.timestamp()
	if err := s.store.UpdateManufacturer(ctx, m); err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	return m, nil
}

// Profile returns the caller's full manufacturer profile.
func (s *Service) Profile(ctx context.Context, p auth.Principal) (ManufacturerProfile, error) {
	m, err := s.ownManufacturer(ctx, p)
	if err != nil {
		return ManufacturerProfile{}, err
	}
	return s.profileOf(ctx, m)
}

// AddLegalDocument attaches a document to the caller's manufacturer.
func (s *Service) AddLegalDocument(ctx context.Context, p auth.Principal, in LegalDocumentInput) (LegalDocument, error) {
	if err := CheckInput(in); err != nil {
		return LegalDocument{}, err
	}
	m, err := s.ownManufacturer(ctx, p)
	if err != nil {
		return LegalDocument{}, err
	}
	doc := LegalDocument{
		ID:             ids.New(),
		ManufacturerID: m.ID,
		UploaderID:     p.UserID,
		Title:          strings.TrimSpace(in.Title),
		URL:            strings.TrimSpace(in.URL),
		CreatedAt:      s.timestamp(),
	}
	if err := s.store.CreateLegalDocument(ctx, doc); err != nil {
		return LegalDocument{}, storeError(err, msgNoManufacturer, "")
	}
	return doc, nil
}

// ToggleStaffReview flips the viewed-by-staff flag of a manufacturer. The
// manufacturer itself and admin-tier staff may call it.
func (s *Service) ToggleStaffReview(ctx context.Context, manufacturerID string) (Manufacturer, error) {
	m, err := s.store.ManufacturerByID(ctx, manufacturerID)
	if err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	m.IsViewedByStaff = !m.IsViewedByStaff
	m.UpdatedAt = s.timestamp()
	if err := s.store.UpdateManufacturer(ctx, m); err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	s.recordBestEffort(ctx, audit.ActionManufacturerReviewToggled, audit.ResourceManufacturer, m.ID, map[string]any{
		"manufacturerId":  m.ID,
		"isViewedByStaff": m.IsViewedByStaff,
	})
	return m, nil
}

// VerifyAndStoreGSTIN resolves the legal name registered for gstin and, when
// found, stores it on the caller's profile and marks the account verified.
// Every outcome is reported through the result; it never returns an error.
func (s *Service) VerifyAndStoreGSTIN(ctx context.Context, userID, gstin string) GSTINResult {
	log := obs.FromContext(ctx)
	m, err := s.store.ManufacturerByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GSTINResult{Message: msgGSTINNoProfile, Kind: apperr.KindNotFound}
		}
		log.Error("gstin: load manufacturer", zap.String("user_id", userID), zap.Error(err))
		return GSTINResult{Message: msgGSTINUnavailable, Kind: apperr.KindInternal}
	}

	gstin = gst.Normalize(gstin)
	if !gst.Valid(gstin) {
		return GSTINResult{Message: msgGSTINInvalid, Kind: apperr.KindBadRequest}
	}

	if s.gst == nil {
		return GSTINResult{Message: msgGSTINLookupMissing, Kind: apperr.KindInternal}
	}
	name, err := s.gst.LegalName(ctx, gstin)
	if err != nil {
		log.Error("gstin: lookup failed", zap.String("gstin", gstin), zap.Error(err))
		return GSTINResult{Message: msgGSTINUnavailable, Kind: apperr.KindInternal}
	}
	if name == "" {
		return GSTINResult{Message: msgGSTINNoLegalName, Kind: apperr.KindNotFound}
	}

	now := s.timestamp()
	m.GSTIN = gstin
	m.VerifiedGSTName = name
	m.GSTINVerifiedAt = &now
	m.IsVerified = true
	m.UpdatedAt = now
	if err := s.store.UpdateManufacturer(ctx, m); err != nil {
		log.Error("gstin: store result", zap.String("manufacturer_id", m.ID), zap.Error(err))
		return GSTINResult{Message: msgGSTINUnavailable, Kind: apperr.KindInternal}
	}
	s.recordBestEffort(ctx, audit.ActionGSTINVerified, audit.ResourceManufacturer, m.ID, map[string]any{
		"manufacturerId":  m.ID,
		"gstin":           gstin,
		"verifiedGstName": name,
	})
	return GSTINResult{Success: true, Message: msgGSTINStored, Name: name}
}

func (s *Service) ownManufacturer(ctx context.Context, p auth.Principal) (Manufacturer, error) {
	if p.ManufacturerID == "" {
		return Manufacturer{}, apperr.NotFound(msgNoManufacturerProfile)
	}
	m, err := s.store.ManufacturerByID(ctx, p.ManufacturerID)
	if err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturer, "")
	}
	return m, nil
}

func (s *Service) profileOf(ctx context.Context, m Manufacturer) (ManufacturerProfile, error) {
	owner, err := s.store.UserByID(ctx, m.UserID)
	if err != nil {
		return ManufacturerProfile{}, storeError(err, msgUserNotFound, "")
	}
	docs, err := s.store.LegalDocuments(ctx, m.ID)
	if err != nil {
		return ManufacturerProfile{}, apperr.Internal(err)
	}
	products, err := s.store.ProductsByManufacturer(ctx, m.ID)
	if err != nil {
		return ManufacturerProfile{}, apperr.Internal(err)
	}
	return ManufacturerProfile{
		Manufacturer:   m,
		User:           summarizeUser(owner),
		LegalDocuments: docs,
		Products:       products,
	}, nil
}

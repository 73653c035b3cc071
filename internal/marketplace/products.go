package marketplace

import (
	"context"
	"strings"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/ids"
)

const (
	msgProductNotFound  = "Product not found"
	msgSlugTaken        = "Product with this slug already exists"
	msgNotVerified      = "Account not verified!"
	msgUpdateOwnProduct = "You can only update your own products"
	msgDeleteOwnProduct = "You can only delete your own products"
)

// CreateProduct adds a product to the caller's catalog.
func (s *Service) CreateProduct(ctx context.Context, p auth.Principal, in ProductInput) (Product, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if err := CheckInput(in); err != nil {
		return Product{}, err
	}
	m, err := s.callerManufacturer(ctx, p)
	if err != nil {
		return Product{}, err
	}
	now := s.timestamp()
	product := Product{
		ID:               ids.New(),
		ManufacturerID:   m.ID,
		Slug:             in.Slug,
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		BaseUnit:         strings.TrimSpace(in.BaseUnit),
		UnitPrice:        in.UnitPrice,
		DeliveryTimeDays: in.DeliveryTimeDays,
		Tags:             cloneStrings(in.Tags),
		MediaURLs:        cloneStrings(in.MediaURLs),
		SpecSheetURL:     strings.TrimSpace(in.SpecSheetURL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return Product{}, storeError(err, "", msgSlugTaken)
	}
	return product, nil
}

// UpdateProduct applies a partial update, subject to ownership and the update
// gate.
func (s *Service) UpdateProduct(ctx context.Context, p auth.Principal, productID string, in ProductUpdate) (Product, error) {
	if err := CheckInput(in); err != nil {
		return Product{}, err
	}
	m, product, err := s.ownedProduct(ctx, p, productID, msgUpdateOwnProduct)
	if err != nil {
		return Product{}, err
	}
	if !s.policy.Update.Allows(m.IsVerified) {
		return Product{}, apperr.Unauthorized(msgNotVerified)
	}

	applyProductUpdate(&product, in)
	product.UpdatedAt = s.timestamp()
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return Product{}, storeError(err, msgProductNotFound, msgSlugTaken)
	}
	return product, nil
}

// ToggleProductStatus flips IsPaused, subject to ownership and the toggle gate.
func (s *Service) ToggleProductStatus(ctx context.Context, p auth.Principal, productID string) (Product, error) {
	m, product, err := s.ownedProduct(ctx, p, productID, msgUpdateOwnProduct)
	if err != nil {
		return Product{}, err
	}
	if !s.policy.Toggle.Allows(m.IsVerified) {
		return Product{}, apperr.Unauthorized(msgNotVerified)
	}
	product.IsPaused = !product.IsPaused
	product.UpdatedAt = s.timestamp()
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return Product{}, storeError(err, msgProductNotFound, msgSlugTaken)
	}
	return product, nil
}

// DeleteProduct removes one of the caller's products.
func (s *Service) DeleteProduct(ctx context.Context, p auth.Principal, productID string) error {
	if _, _, err := s.ownedProduct(ctx, p, productID, msgDeleteOwnProduct); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return storeError(err, msgProductNotFound, "")
	}
	return nil
}

// Product returns a product with its manufacturer badge. Ownership is not checked.
func (s *Service) Product(ctx context.Context, productID string) (ProductView, error) {
	product, err := s.store.ProductByID(ctx, productID)
	if err != nil {
		return ProductView{}, storeError(err, msgProductNotFound, "")
	}
	m, err := s.store.ManufacturerByID(ctx, product.ManufacturerID)
	if err != nil {
		return ProductView{}, storeError(err, msgNoManufacturer, "")
	}
	return ProductView{
		Product:      product,
		Manufacturer: ManufacturerBadge{CompanyName: m.CompanyName, IsVerified: m.IsVerified},
	}, nil
}

// MyProducts lists the caller's products, newest first.
func (s *Service) MyProducts(ctx context.Context, p auth.Principal) ([]Product, error) {
	m, err := s.callerManufacturer(ctx, p)
	if err != nil {
		return nil, err
	}
	products, err := s.store.ProductsByManufacturer(ctx, m.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return products, nil
}

// callerManufacturer loads the manufacturer owned by the principal's user so
// gates always read the stored verification state.
func (s *Service) callerManufacturer(ctx context.Context, p auth.Principal) (Manufacturer, error) {
	m, err := s.store.ManufacturerByUserID(ctx, p.UserID)
	if err != nil {
		return Manufacturer{}, storeError(err, msgNoManufacturerProfile, "")
	}
	return m, nil
}

// ownedProduct loads the product and checks it belongs to the caller. The
// ownership check runs before any verification gate.
func (s *Service) ownedProduct(ctx context.Context, p auth.Principal, productID, forbidden string) (Manufacturer, Product, error) {
	m, err := s.callerManufacturer(ctx, p)
	if err != nil {
		return Manufacturer{}, Product{}, err
	}
	product, err := s.store.ProductByID(ctx, productID)
	if err != nil {
		return Manufacturer{}, Product{}, storeError(err, msgProductNotFound, "")
	}
	if product.ManufacturerID != m.ID {
		return Manufacturer{}, Product{}, apperr.Forbidden(forbidden)
	}
	return m, product, nil
}

func applyProductUpdate(p *Product, in ProductUpdate) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		p.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.BaseUnit != nil {
		p.BaseUnit = strings.TrimSpace(*in.BaseUnit)
	}
	if in.UnitPrice != nil {
		p.UnitPrice = *in.UnitPrice
	}
	if in.DeliveryTimeDays != nil {
		p.DeliveryTimeDays = *in.DeliveryTimeDays
	}
	if in.Tags != nil {
		p.Tags = cloneStrings(*in.Tags)
	}
	if in.MediaURLs != nil {
		p.MediaURLs = cloneStrings(*in.MediaURLs)
	}
	if in.SpecSheetURL != nil {
		p.SpecSheetURL = strings.TrimSpace(*in.SpecSheetURL)
	}
	if in.IsPaused != nil {
		p.IsPaused = *in.IsPaused
	}
}

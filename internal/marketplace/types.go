package marketplace

import (
	"time"

	"sourzka.org/internal/auth"
)

// User is a marketplace account holder (BUYER or MANUFACTURER).
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Admin is a staff account. Admins are not marketplace users.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Manufacturer is the profile owned by a MANUFACTURER user. It is never deleted.
type Manufacturer struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	CompanyName     string     `json:"companyName"`
	FactoryDetails  string     `json:"factoryDetails,omitempty"`
	Keywords        []string   `json:"keywords"`
	Certificates    []string   `json:"certificates"`
	Gallery         []string   `json:"gallery"`
	IntroVideo      string     `json:"introVideo,omitempty"`
	IsVerified      bool       `json:"isVerified"`
	IsViewedByStaff bool       `json:"isViewedByStaff"`
	GSTIN           string     `json:"gstin,omitempty"`
	VerifiedGSTName string     `json:"verifiedGstName,omitempty"`
	GSTINVerifiedAt *time.Time `json:"gstinVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Buyer is the profile owned by a BUYER user.
type Buyer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LegalDocument is a compliance document attached to a manufacturer.
type LegalDocument struct {
	ID             string    `json:"id"`
	ManufacturerID string    `json:"manufacturerId"`
	UploaderID     string    `json:"uploaderId"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Product is a catalog entry owned by one manufacturer.
type Product struct {
	ID               string    `json:"id"`
	ManufacturerID   string    `json:"manufacturerId"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	BaseUnit         string    `json:"baseUnit"`
	UnitPrice        float64   `json:"unitPrice"`
	DeliveryTimeDays int       `json:"deliveryTimeDays"`
	Tags             []string  `json:"tags"`
	MediaURLs        []string  `json:"mediaUrls"`
	SpecSheetURL     string    `json:"specSheetUrl,omitempty"`
	IsPaused         bool      `json:"isPaused"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserSummary is the owner block embedded in manufacturer views.
type UserSummary struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductSummary is the short product form used in listings.
type ProductSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsPaused bool   `json:"isPaused"`
}

// ManufacturerOverview is one row of the admin manufacturer listing.
type ManufacturerOverview struct {
	Manufacturer
	User     UserSummary      `json:"user"`
	Products []ProductSummary `json:"products"`
}

// ManufacturerProfile is the full view of a manufacturer.
type ManufacturerProfile struct {
	Manufacturer
	User           UserSummary     `json:"user"`
	LegalDocuments []LegalDocument `json:"legalDocuments"`
	Products       []Product       `json:"products"`
}

// ProductView is a product with a short summary of its manufacturer.
type ProductView struct {
	Product
	Manufacturer ManufacturerBadge `json:"manufacturer"`
}

// ManufacturerBadge is what other marketplace users see about a product's maker.
type ManufacturerBadge struct {
	CompanyName string `json:"companyName"`
	IsVerified  bool   `json:"isVerified"`
}

// ManufacturerFilter narrows the admin listing. Nil pointers match everything.
type ManufacturerFilter struct {
	Verified        *bool
	IsViewedByStaff *bool
	Search          string
	Page            int
	Limit           int
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ManufacturerPage is a page of the admin listing.
type ManufacturerPage struct {
	Manufacturers []ManufacturerOverview `json:"manufacturers"`
	Pagination    Pagination             `json:"pagination"`
}

// Session is returned by successful sign-in calls.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      any       `json:"user"`
}

// Offset returns the number of rows to skip for the filter's page.
func (f ManufacturerFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

func summarizeUser(u User) UserSummary {
	return UserSummary{Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func summarizeProducts(products []Product) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{ID: p.ID, Name: p.Name, IsPaused: p.IsPaused})
	}
	return out
}

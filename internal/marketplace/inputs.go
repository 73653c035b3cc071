package marketplace

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/auth"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// SignupInput creates a marketplace user.
type SignupInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r SignupInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200)),
	)
}

// SigninInput authenticates a user or an admin.
type SigninInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SigninInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200)),
	)
}

// CreateAdminInput creates a staff account.
type CreateAdminInput struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func (r CreateAdminInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200)),
		validation.Field(&r.Role, validation.Required, validation.By(adminRole)),
	)
}

// OnboardingInput sets the company profile.
type OnboardingInput struct {
	CompanyName    string   `json:"companyName"`
	FactoryDetails string   `json:"factoryDetails"`
	Keywords       []string `json:"keywords"`
	Certificates   []string `json:"certificates"`
	Gallery        []string `json:"gallery"`
	IntroVideo     string   `json:"introVideo"`
}

func (r OnboardingInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyName, validation.Required.Error("Company name is required")),
		validation.Field(&r.Certificates, validation.By(eachURL("Invalid certificate URL"))),
		validation.Field(&r.Gallery, validation.By(eachURL("Invalid gallery image URL"))),
		validation.Field(&r.IntroVideo, is.URL.Error("Invalid video URL")),
	)
}

// ProfileUpdate is a partial company profile update. Nil fields are untouched.
type ProfileUpdate struct {
	CompanyName    *string   `json:"companyName"`
	FactoryDetails *string   `json:"factoryDetails"`
	Keywords       *[]string `json:"keywords"`
	Certificates   *[]string `json:"certificates"`
	Gallery        *[]string `json:"gallery"`
	IntroVideo     *string   `json:"introVideo"`
}

func (r ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyName, validation.NilOrNotEmpty.Error("Company name is required")),
		validation.Field(&r.Certificates, validation.By(eachURL("Invalid certificate URL"))),
		validation.Field(&r.Gallery, validation.By(eachURL("Invalid gallery image URL"))),
		validation.Field(&r.IntroVideo, is.URL.Error("Invalid video URL")),
	)
}

// LegalDocumentInput attaches a document to a manufacturer.
type LegalDocumentInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r LegalDocumentInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required.Error("Document title is required")),
		validation.Field(&r.URL, validation.Required, is.URL.Error("Invalid document URL")),
	)
}

// ProductInput creates a product.
type ProductInput struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	Description      string   `json:"description"`
	BaseUnit         string   `json:"baseUnit"`
	UnitPrice        float64  `json:"unitPrice"`
	DeliveryTimeDays int      `json:"deliveryTimeDays"`
	Tags             []string `json:"tags"`
	MediaURLs        []string `json:"mediaUrls"`
	SpecSheetURL     string   `json:"specSheetUrl"`
}

func (r ProductInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Product name is required")),
		validation.Field(&r.Slug,
			validation.Required.Error("Slug is required"),
			validation.Match(slugPattern).Error("Slug must be lowercase alphanumeric with dashes"),
		),
		validation.Field(&r.Description,
			validation.Required.Error("Description must be at least 10 characters"),
			validation.Length(10, 0).Error("Description must be at least 10 characters"),
		),
		validation.Field(&r.BaseUnit, validation.Required.Error("Base unit is required")),
		validation.Field(&r.UnitPrice, validation.By(positiveFloat("Unit price must be positive"))),
		validation.Field(&r.DeliveryTimeDays, validation.By(positiveInt("Delivery time must be positive"))),
		validation.Field(&r.MediaURLs, validation.By(eachURL("Invalid media URL"))),
		validation.Field(&r.SpecSheetURL, is.URL.Error("Invalid spec sheet URL")),
	)
}

// ProductUpdate is a partial product update. Nil fields are untouched.
type ProductUpdate struct {
	Name             *string   `json:"name"`
	Slug             *string   `json:"slug"`
	Description      *string   `json:"description"`
	BaseUnit         *string   `json:"baseUnit"`
	UnitPrice        *float64  `json:"unitPrice"`
	DeliveryTimeDays *int      `json:"deliveryTimeDays"`
	Tags             *[]string `json:"tags"`
	MediaURLs        *[]string `json:"mediaUrls"`
	SpecSheetURL     *string   `json:"specSheetUrl"`
	IsPaused         *bool     `json:"isPaused"`
}

func (r ProductUpdate) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty.Error("Product name is required")),
		validation.Field(&r.Slug,
			validation.NilOrNotEmpty.Error("Slug is required"),
			validation.Match(slugPattern).Error("Slug must be lowercase alphanumeric with dashes"),
		),
		validation.Field(&r.Description, validation.Length(10, 0).Error("Description must be at least 10 characters")),
		validation.Field(&r.BaseUnit, validation.NilOrNotEmpty.Error("Base unit is required")),
		validation.Field(&r.UnitPrice, validation.By(positiveFloat("Unit price must be positive"))),
		validation.Field(&r.DeliveryTimeDays, validation.By(positiveInt("Delivery time must be positive"))),
		validation.Field(&r.MediaURLs, validation.By(eachURL("Invalid media URL"))),
		validation.Field(&r.SpecSheetURL, is.URL.Error("Invalid spec sheet URL")),
	)
}

// VerificationInput is a staff verification decision.
type VerificationInput struct {
	IsVerified *bool `json:"isVerified"`
}

func (r VerificationInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsVerified, validation.NotNil.Error("isVerified must be specified")),
	)
}

// GSTINInput carries the GSTIN to verify.
type GSTINInput struct {
	GSTIN string `json:"gstin"`
}

func (r GSTINInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.GSTIN, validation.Required.Error("GSTIN is required.")),
	)
}

// Validatable is implemented by every request input.
type Validatable interface {
	Validate() error
}

// CheckInput runs in.Validate and converts failures into a Validation error
// with per-field details.
func CheckInput(in Validatable) error {
	err := in.Validate()
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		details := make(map[string]string, len(fields))
		for name, fieldErr := range fields {
			details[name] = fieldErr.Error()
		}
		return apperr.Validation("validation failed", details)
	}
	return apperr.Validation(err.Error(), nil)
}

func adminRole(value interface{}) error {
	role, _ := value.(auth.Role)
	if !role.IsAdmin() {
		return fmt.Errorf("must be one of %v", auth.AdminRoles)
	}
	return nil
}

func eachURL(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		var urls []string
		switch v := value.(type) {
		case []string:
			urls = v
		case *[]string:
			if v != nil {
				urls = *v
			}
		}
		for _, u := range urls {
			if err := is.URL.Validate(u); err != nil || u == "" {
				return errors.New(msg)
			}
		}
		return nil
	}
}

func positiveFloat(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		switch v := value.(type) {
		case float64:
			if v <= 0 {
				return errors.New(msg)
			}
		case *float64:
			if v != nil && *v <= 0 {
				return errors.New(msg)
			}
		}
		return nil
	}
}

func positiveInt(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		switch v := value.(type) {
		case int:
			if v <= 0 {
				return errors.New(msg)
			}
		case *int:
			if v != nil && *v <= 0 {
				return errors.New(msg)
			}
		}
		return nil
	}
}

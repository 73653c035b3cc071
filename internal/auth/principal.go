package auth

import (
	"errors"
	"strings"
)

// Principal is the authenticated identity attached to a request. It is rebuilt
// from the session token on every request and never stored.
type Principal struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	BuyerID        string `json:"buyerId,omitempty"`
}

var (
	errMissingUserID      = errors.New("principal: user id is required")
	errUnknownRole        = errors.New("principal: unknown role")
	errManufacturerIDRole = errors.New("principal: manufacturer id requires MANUFACTURER role")
	errBuyerIDRole        = errors.New("principal: buyer id requires BUYER role")
)

// Validate enforces that role-specific ids only appear on their own role.
func (p Principal) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return errMissingUserID
	}
	if !p.Role.Valid() {
		return errUnknownRole
	}
	if p.ManufacturerID != "" && p.Role != RoleManufacturer {
		return errManufacturerIDRole
	}
	if p.BuyerID != "" && p.Role != RoleBuyer {
		return errBuyerIDRole
	}
	return nil
}

// IsAdmin reports whether the principal holds an admin-tier role.
func (p Principal) IsAdmin() bool { return p.Role.IsAdmin() }

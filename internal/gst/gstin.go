// Package gst resolves GSTINs to registered legal names.
package gst

import (
	"context"
	"strings"
)

// Lookup resolves the legal name for a GSTIN. An empty name with a nil error
// means the registry has no match.
type Lookup interface {
	LegalName(ctx context.Context, gstin string) (string, error)
}

// Normalize upper-cases and trims a GSTIN.
func Normalize(gstin string) string {
	return strings.ToUpper(strings.TrimSpace(gstin))
}

// Valid reports whether gstin is 15 characters of [0-9A-Z].
func Valid(gstin string) bool {
	if len(gstin) != 15 {
		return false
	}
	for i := 0; i < len(gstin); i++ {
		c := gstin[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

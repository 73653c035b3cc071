package marketplace

import (
	"fmt"
	"strings"
)

// Gate decides whether a manufacturer's verification state permits a product
// mutation.
type Gate string

const (
	// GateUnverified admits only manufacturers that are not yet verified.
	GateUnverified Gate = "unverified"
	// GateVerified admits only verified manufacturers.
	GateVerified Gate = "verified"
	// GateNone admits every manufacturer.
	GateNone Gate = "none"
)

// ParseGate parses a gate name; the empty string selects fallback.
func ParseGate(raw string, fallback Gate) (Gate, error) {
	g := Gate(strings.ToLower(strings.TrimSpace(raw)))
	switch g {
	case "":
		return fallback, nil
	case GateUnverified, GateVerified, GateNone:
		return g, nil
	}
	return "", fmt.Errorf("unknown product gate %q (want unverified, verified or none)", raw)
}

// Allows reports whether a manufacturer with the given state passes the gate.
func (g Gate) Allows(isVerified bool) bool {
	switch g {
	case GateUnverified:
		return !isVerified
	case GateVerified:
		return isVerified
	case GateNone:
		return true
	}
	return false
}

// Policy holds the product mutation gates. Create and delete are gated by
// ownership alone.
type Policy struct {
	Update Gate
	Toggle Gate
}

// DefaultPolicy matches the deployed behaviour: edits are allowed while the
// account awaits verification, pausing and resuming only once verified.
func DefaultPolicy() Policy {
	return Policy{Update: GateUnverified, Toggle: GateVerified}
}

// Package tracer generates request and execution identifiers.
package tracer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewRequestID generates a pipeline request ID ("r-" prefix).
func NewRequestID() string {
	return prefixedID("r", 12)
}

// NewExecutionID generates a sandbox execution ID ("x-" prefix).
func NewExecutionID() string {
	return prefixedID("x", 12)
}

// NewApprovalToken generates a single-use approval token ("apv-" prefix).
// Longer than the IDs: tokens gate execution, so guessing one must be
// impractical.
func NewApprovalToken() string {
	return prefixedID("apv", 32)
}

// UTCNowISO returns the current UTC time in ISO format with Z suffix.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func prefixedID(prefix string, hexLen int) string {
	b := make([]byte, (hexLen+1)/2)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b)[:hexLen])
}

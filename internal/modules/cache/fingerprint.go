package cache

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeText collapses all runs of Unicode whitespace to single spaces and
// trims the result. Applied identically on the read and write paths so
// semantically identical inputs share a cache entry.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Fingerprint derives the deterministic cache key for a request-equivalence
// class. The tenant identifier is always part of the hashed tuple, so two
// tenants can never collide onto the same entry.
func Fingerprint(tenantID, templateRef, text, modelID string, maxOutputLength int) string {
	tuple := strings.Join([]string{
		tenantID,
		templateRef,
		NormalizeText(text),
		modelID,
		strconv.Itoa(maxOutputLength),
	}, "\x1f")
	h := sha256.Sum256([]byte(tuple))
	return fmt.Sprintf("%x", h)
}

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for a future encoding change.
const (
	DomainRecords = "xcmreserve/records/v1"
	DomainRules   = "xcmreserve/rules/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the domain-separated SHA-256 of v's canonical JSON.
func ContentHash(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// HashBytes returns the domain-separated SHA-256 of already canonical bytes.
func HashBytes(domain string, canonical []byte) string {
	return hashWithDomain(domain, canonical)
}

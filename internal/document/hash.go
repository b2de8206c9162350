package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRevision prefixes document revision hashes. The version suffix
// allows a future algorithm change.
const DomainRevision = "docql/document/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the revision of doc: a hex SHA-256 over its
// canonical form. Documents equal up to key order and NFC normalization
// share a revision.
func ContentHash(doc Object) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRevision, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(doc Object) string {
	h, err := ContentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}

package values

import (
	"crypto/sha256"
	"encoding/hex"
)

// PhoneHashLength is the number of hex characters kept from the SHA-256 digest.
const PhoneHashLength = 32

// PhoneHash is the anonymized identifier standing in for a lead's phone number
type PhoneHash struct {
	hash string // lowercase hex, PhoneHashLength characters
}

// ComputePhoneHash derives the anonymized identifier for a phone number.
func ComputePhoneHash(phone PhoneNumber) PhoneHash {
	sum := sha256.Sum256([]byte(phone.String()))
	return PhoneHash{hash: hex.EncodeToString(sum[:])[:PhoneHashLength]}
}

// NewPhoneHashForIndex returns the stable identifier for the lead at index i.
// The same index always yields the same hash; the digest hides any numeric
// relationship between neighbouring indices.
func NewPhoneHashForIndex(i int64) PhoneHash {
	return ComputePhoneHash(SyntheticPhoneNumber(i))
}

// String returns the hex-encoded hash
func (h PhoneHash) String() string {
	return h.hash
}

package cred

import "crypto/sha256"

// HashPayload returns the unpadded base32 SHA-256 of the record-separated,
// upper-cased fields. It is a stable pseudonymous identifier and plays no
// part in signing.
func HashPayload(fields []string) string {
	sum := sha256.Sum256([]byte(BuildHashPayload(fields)))
	return EncodeUnpadded(sum[:])
}

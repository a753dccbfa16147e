package cred

import (
	"strings"

	"github.com/multiformats/go-base32"
)

// EncodeUnpadded encodes b with the RFC 4648 base32 alphabet and strips the
// trailing '=' padding. Signatures and payload hashes travel in this form.
func EncodeUnpadded(b []byte) string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(b), "=")
}

// DecodePadded restores the padding implied by len(s) mod 8 and decodes s.
//
// Unpadded base32 can only leave remainders 0, 2, 4, 5 or 7; any other length
// cannot have been produced by an encoder.
func DecodePadded(s string) ([]byte, error) {
	var pad string
	switch len(s) % 8 {
	case 0:
	case 2:
		pad = "======"
	case 4:
		pad = "===="
	case 5:
		pad = "==="
	case 7:
		pad = "="
	default:
		return nil, NewError(KindDecode, "CRED-B32-001", "invalid base32 length")
	}
	b, err := base32.StdEncoding.DecodeString(s + pad)
	if err != nil {
		return nil, WrapError(KindDecode, "CRED-B32-002", "invalid base32", err)
	}
	return b, nil
}

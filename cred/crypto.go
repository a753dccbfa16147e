package cred

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"xdao.co/cred/keys"
)

// DigestForSigning returns the lowercase hex SHA-256 of payload.
//
// Deployed issuers hand this hex string to the ECDSA primitive, which reads
// it as a base-16 integer. The message actually signed is therefore the raw
// 32-byte digest; signingMessage performs that conversion.
func DigestForSigning(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func signingMessage(payload string) []byte {
	msg, _ := hex.DecodeString(DigestForSigning(payload))
	return msg
}

// SignPayload signs the canonical payload and returns the DER signature.
func SignPayload(priv *keys.PrivateKey, payload string) ([]byte, error) {
	der, err := keys.Sign(priv, signingMessage(payload))
	if err != nil {
		return nil, keyError(err)
	}
	return der, nil
}

// VerifyPayload checks an unpadded base32 DER signature over payload.
// Malformed signatures yield false.
func VerifyPayload(pub *keys.PublicKey, payload, signature string) bool {
	der, err := DecodePadded(signature)
	if err != nil {
		return false
	}
	return keys.Verify(pub, signingMessage(payload), der)
}

// Verify parses pubPEM and checks signature over payload.
//
// An unusable key is an error (KindDecode or KindUnsupportedCurve). A bad
// signature is (false, nil).
func Verify(pubPEM, payload, signature string) (bool, error) {
	pub, err := keys.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return false, keyError(err)
	}
	return VerifyPayload(pub, payload, signature), nil
}

// keyError maps keys sentinels onto the error taxonomy.
func keyError(err error) error {
	switch {
	case errors.Is(err, keys.ErrUnsupportedCurve):
		return WrapError(KindUnsupportedCurve, "CRED-KEY-001", "unsupported curve", err)
	case errors.Is(err, keys.ErrMalformedKey):
		return WrapError(KindDecode, "CRED-KEY-002", "malformed key", err)
	default:
		return WrapError(KindInternal, "CRED-KEY-500", "key operation failed", err)
	}
}

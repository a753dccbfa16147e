// Package cred implements the compact signed credential envelope:
//
//	CRED:<TYPE>:<VERSION>:<SIGNATURE>:<KEYID>:<PAYLOAD>
//
// PAYLOAD is the canonical form of an ordered field list (upper-cased,
// percent-encoded, "/"-joined). SIGNATURE is the unpadded base32 DER ECDSA
// signature over that payload. KEYID names the public key, which verifiers
// discover through the resolver package.
//
// Errors are *Error values carrying a Kind and a stable RuleID.
package cred

import (
	"strings"

	"xdao.co/cred/keys"
)

// Sign builds the canonical payload for fields and signs it with the private
// key in privPEM. TYPE, VERSION and KEYID are upper-cased.
func Sign(credType, version, privPEM, keyID string, fields []string) (*Envelope, error) {
	priv, err := keys.ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, keyError(err)
	}
	return SignWithKey(credType, version, priv, keyID, fields)
}

// SignWithKey is Sign for an already parsed key.
func SignWithKey(credType, version string, priv *keys.PrivateKey, keyID string, fields []string) (*Envelope, error) {
	payload := BuildPayload(fields)
	der, err := SignPayload(priv, payload)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		SchemaTag: SchemaTag,
		Type:      upper(credType),
		Version:   upper(version),
		Signature: EncodeUnpadded(der),
		KeyID:     upper(keyID),
		Payload:   payload,
	}
	for _, p := range []string{env.Type, env.Version, env.KeyID} {
		if p == "" || strings.Contains(p, PartSeparator) {
			return nil, NewError(KindDecode, "CRED-ENV-004", "type, version and key id must be non-empty and colon-free")
		}
	}
	return env, nil
}

// SignAndPack signs fields and returns the packed envelope string.
func SignAndPack(credType, version, privPEM, keyID string, fields []string) (string, error) {
	env, err := Sign(credType, version, privPEM, keyID, fields)
	if err != nil {
		return "", err
	}
	return env.Pack()
}

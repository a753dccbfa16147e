// Package resolver discovers the public key named by a credential's KEYID.
//
// Resolution walks an ordered chain and stops at the first success:
//
//  1. the in-process Cache
//  2. a DNS TXT record for KEYID, read over DNS-over-HTTPS
//  3. an HTTPS GET of https://KEYID
//  4. the key repository file <group>/<id>.pem
//
// A failing source is logged and skipped. Only exhaustion of the chain is
// reported, as a cred.KindNotFound error, and it is never cached.
package resolver

import (
	"strings"

	"xdao.co/cred/cidutil"
)

// SourceKind records which step of the chain produced a key.
type SourceKind string

const (
	SourceDNS  SourceKind = "DNS"
	SourceURL  SourceKind = "URL"
	SourceRepo SourceKind = "REPO"
)

// KeyRecord is a resolved public key and its provenance. Records are
// immutable once cached.
type KeyRecord struct {
	KeyID       string
	Source      SourceKind
	PEM         string
	Origin      string
	Fingerprint string
}

const (
	pemBegin = "-----BEGIN PUBLIC KEY-----"
	pemEnd   = "-----END PUBLIC KEY-----"
)

func hasArmor(s string) bool {
	return strings.Contains(s, pemBegin)
}

// NewRecord builds a record and derives its Fingerprint from pem.
func NewRecord(keyID string, source SourceKind, pem, origin string) KeyRecord {
	return KeyRecord{
		KeyID:       keyID,
		Source:      source,
		PEM:         pem,
		Origin:      origin,
		Fingerprint: cidutil.CIDv1RawSHA256([]byte(pem)),
	}
}

package cred

import (
	"strings"

	"xdao.co/cred/cidutil"
)

const (
	// SchemaTag is the first part of every credential envelope.
	SchemaTag = "CRED"
	// PartSeparator delimits envelope parts.
	PartSeparator = ":"
	// EnvelopeParts is the exact number of parts in an envelope.
	EnvelopeParts = 6
)

// Envelope is a parsed credential envelope:
//
//	CRED:<TYPE>:<VERSION>:<SIGNATURE>:<KEYID>:<PAYLOAD>
//
// Payload is the canonical payload exactly as transmitted (and signed).
type Envelope struct {
	SchemaTag string
	Type      string
	Version   string
	Signature string
	KeyID     string
	Payload   string
}

// Parts returns the six envelope parts in wire order.
func (e Envelope) Parts() []string {
	return []string{e.SchemaTag, e.Type, e.Version, e.Signature, e.KeyID, e.Payload}
}

// Pack joins the envelope parts. It fails if a part contains a literal colon.
func (e Envelope) Pack() (string, error) {
	return Pack(e.Parts())
}

// Fields percent-decodes the payload.
func (e Envelope) Fields() ([]string, error) {
	return ParsePayload(e.Payload)
}

// Pack joins exactly six parts with ":".
func Pack(parts []string) (string, error) {
	if len(parts) != EnvelopeParts {
		return "", NewError(KindDecode, "CRED-ENV-001", "envelope must have exactly 6 parts")
	}
	for _, p := range parts {
		if strings.Contains(p, PartSeparator) {
			return "", NewError(KindDecode, "CRED-ENV-002", "envelope part contains a literal colon")
		}
	}
	return strings.Join(parts, PartSeparator), nil
}

// Unpack splits an envelope into its six parts without interpreting them.
func Unpack(uri string) ([]string, error) {
	parts := strings.Split(uri, PartSeparator)
	if len(parts) != EnvelopeParts {
		return nil, NewError(KindDecode, "CRED-ENV-001", "envelope must have exactly 6 parts")
	}
	return parts, nil
}

// ParseEnvelope unpacks uri and checks the schema tag.
func ParseEnvelope(uri string) (*Envelope, error) {
	parts, err := Unpack(uri)
	if err != nil {
		return nil, err
	}
	if parts[0] != SchemaTag {
		return nil, NewError(KindDecode, "CRED-ENV-003", "unknown envelope schema tag")
	}
	return &Envelope{
		SchemaTag: parts[0],
		Type:      parts[1],
		Version:   parts[2],
		Signature: parts[3],
		KeyID:     parts[4],
		Payload:   parts[5],
	}, nil
}

// EnvelopeID returns a CIDv1 (raw + sha2-256) over the envelope bytes.
func EnvelopeID(uri string) string {
	return cidutil.CIDv1RawSHA256([]byte(uri))
}

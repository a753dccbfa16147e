package model

// VerifyRequest carries one envelope. PublicKey, when set, is used instead
// of key discovery.
type VerifyRequest struct {
	URI       string `json:"uri"`
	PublicKey string `json:"publicKey,omitempty"`
}

type KeyRecord struct {
	KeyID       string `json:"keyId"`
	Source      string `json:"source"`
	Origin      string `json:"origin"`
	Fingerprint string `json:"fingerprint"`
	PEM         string `json:"pem"`
}

type VerifyResponse struct {
	Verified   bool      `json:"verified"`
	EnvelopeID string    `json:"envelopeId"`
	Type       string    `json:"type"`
	Version    string    `json:"version"`
	Key        KeyRecord `json:"key"`
	Fields     []string  `json:"fields"`
}

// DecodeResponse adds the schema-mapped record. Schema is false when the
// record uses positional "Undefined NN" names.
type DecodeResponse struct {
	VerifyResponse
	Schema bool           `json:"schema"`
	Record map[string]any `json:"record"`
}

type HashRequest struct {
	Fields []string `json:"fields"`
}

type HashResponse struct {
	Hash string `json:"hash"`
}

package model

import (
	"context"
	"strings"

	"xdao.co/cred/cred"
	"xdao.co/cred/resolver"
	"xdao.co/cred/verifier"
)

// Service runs the verifier operations behind the API DTOs. Errors are
// always *CodedError.
type Service struct {
	Verifier *verifier.Verifier
}

func (s Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	if strings.TrimSpace(req.URI) == "" {
		return nil, NewError(ErrInvalidRequest, "uri is required")
	}
	var (
		ver *verifier.Verified
		err error
	)
	if req.PublicKey != "" {
		ver, err = verifier.VerifyWithKey(req.URI, req.PublicKey)
	} else {
		ver, err = s.Verifier.UnpackAndVerify(ctx, req.URI)
	}
	if err != nil {
		return nil, FromError(err)
	}
	resp := fromVerified(req.URI, ver)
	return &resp, nil
}

func (s Service) Decode(ctx context.Context, req VerifyRequest) (*DecodeResponse, error) {
	if strings.TrimSpace(req.URI) == "" {
		return nil, NewError(ErrInvalidRequest, "uri is required")
	}
	var (
		dec *verifier.Decoded
		err error
	)
	if req.PublicKey != "" {
		dec, err = s.Verifier.DecodeWithKey(ctx, req.URI, req.PublicKey)
	} else {
		dec, err = s.Verifier.Decode(ctx, req.URI)
	}
	if err != nil {
		return nil, FromError(err)
	}
	return &DecodeResponse{
		VerifyResponse: fromVerified(req.URI, &dec.Verified),
		Schema:         dec.Schema,
		Record:         dec.Record,
	}, nil
}

func (s Service) ResolveKey(ctx context.Context, keyID string) (*KeyRecord, error) {
	if keyID == "" {
		return nil, NewError(ErrInvalidRequest, "keyId is required")
	}
	rec, err := s.Verifier.ResolveKey(ctx, keyID)
	if err != nil {
		return nil, FromError(err)
	}
	out := FromKeyRecord(rec)
	return &out, nil
}

func (s Service) Hash(req HashRequest) (*HashResponse, error) {
	if req.Fields == nil {
		return nil, NewError(ErrInvalidRequest, "fields is required")
	}
	return &HashResponse{Hash: cred.HashPayload(req.Fields)}, nil
}

func FromKeyRecord(rec resolver.KeyRecord) KeyRecord {
	return KeyRecord{
		KeyID:       rec.KeyID,
		Source:      string(rec.Source),
		Origin:      rec.Origin,
		Fingerprint: rec.Fingerprint,
		PEM:         rec.PEM,
	}
}

func fromVerified(uri string, v *verifier.Verified) VerifyResponse {
	fields := v.Fields
	if fields == nil {
		fields = []string{}
	}
	return VerifyResponse{
		Verified:   true,
		EnvelopeID: cred.EnvelopeID(uri),
		Type:       v.Envelope.Type,
		Version:    v.Envelope.Version,
		Key:        FromKeyRecord(v.Key),
		Fields:     fields,
	}
}

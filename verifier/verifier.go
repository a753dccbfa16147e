// Package verifier combines envelope parsing, key resolution, signature
// checking and schema mapping into the operations exposed to callers.
//
// A payload is never decoded unless its signature verified.
package verifier

import (
	"context"
	"errors"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/cred"
	"xdao.co/cred/resolver"
	"xdao.co/cred/schema"
)

// Options configures a Verifier. A nil Resolver gets public defaults; a nil
// Schemas source decodes every payload positionally.
type Options struct {
	Resolver *resolver.Resolver
	Schemas  schema.Source
}

type Verifier struct {
	resolver *resolver.Resolver
	schemas  schema.Source
}

func New(opts Options) *Verifier {
	if opts.Resolver == nil {
		opts.Resolver = resolver.New(resolver.Options{})
	}
	if opts.Schemas == nil {
		opts.Schemas = schema.MapSource{}
	}
	return &Verifier{resolver: opts.Resolver, schemas: opts.Schemas}
}

// Resolver returns the underlying key resolver.
func (v *Verifier) Resolver() *resolver.Resolver { return v.resolver }

// Verified is an envelope whose signature checked out.
type Verified struct {
	Envelope *cred.Envelope
	Key      resolver.KeyRecord
	Fields   []string
}

// Decoded is a verified envelope mapped onto its schema.
type Decoded struct {
	Verified
	Record schema.Record
	// Schema is false when no schema existed and Record is positional.
	Schema bool
}

// ResolveKey resolves keyID through the cache and discovery chain.
func (v *Verifier) ResolveKey(ctx context.Context, keyID string) (resolver.KeyRecord, error) {
	return v.resolver.Resolve(ctx, keyID)
}

// UnpackAndVerify parses uri, resolves its key and checks the signature.
//
// An unknown key is a cred.KindNotFound error. A signature that does not
// verify is a cred.KindVerification error; the payload is not decoded.
func (v *Verifier) UnpackAndVerify(ctx context.Context, uri string) (*Verified, error) {
	env, err := cred.ParseEnvelope(uri)
	if err != nil {
		return nil, err
	}
	key, err := v.resolver.Resolve(ctx, env.KeyID)
	if err != nil {
		return nil, err
	}
	return verifyWith(env, key)
}

// VerifyWithKey checks uri against a caller-supplied public key PEM.
func VerifyWithKey(uri, pubPEM string) (*Verified, error) {
	env, err := cred.ParseEnvelope(uri)
	if err != nil {
		return nil, err
	}
	return verifyWith(env, resolver.KeyRecord{KeyID: env.KeyID, PEM: pubPEM})
}

func verifyWith(env *cred.Envelope, key resolver.KeyRecord) (*Verified, error) {
	ok, err := cred.Verify(key.PEM, env.Payload, env.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cred.NewError(cred.KindVerification, "CRED-SIG-401", "signature does not verify for key "+env.KeyID)
	}
	fields, err := env.Fields()
	if err != nil {
		return nil, err
	}
	return &Verified{Envelope: env, Key: key, Fields: fields}, nil
}

// MapHeaders maps fields onto the schema for credType and version. Without
// a schema, or when the schema cannot be fetched, fields are named
// positionally and found is false.
func (v *Verifier) MapHeaders(ctx context.Context, fields []string, credType, version string) (rec schema.Record, found bool, err error) {
	nodes, err := schema.Load(ctx, v.schemas, credType, version)
	switch {
	case err == nil:
	case errors.Is(err, schema.ErrNoSchema):
		return schema.MapPositional(fields), false, nil
	case cred.IsKind(err, cred.KindDecode):
		return nil, false, err
	default:
		slogcontext.FromCtx(ctx).WarnContext(ctx, "schema unavailable, decoding positionally",
			slog.String("schema", schema.Key(credType, version)), slog.Any("error", err))
		return schema.MapPositional(fields), false, nil
	}
	rec, err = schema.Map(fields, nodes)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Decode verifies uri and maps its payload onto the schema for its type.
func (v *Verifier) Decode(ctx context.Context, uri string) (*Decoded, error) {
	ver, err := v.UnpackAndVerify(ctx, uri)
	if err != nil {
		return nil, err
	}
	return v.decodeVerified(ctx, ver)
}

// DecodeWithKey is Decode against a caller-supplied public key PEM.
func (v *Verifier) DecodeWithKey(ctx context.Context, uri, pubPEM string) (*Decoded, error) {
	ver, err := VerifyWithKey(uri, pubPEM)
	if err != nil {
		return nil, err
	}
	return v.decodeVerified(ctx, ver)
}

func (v *Verifier) decodeVerified(ctx context.Context, ver *Verified) (*Decoded, error) {
	rec, found, err := v.MapHeaders(ctx, ver.Fields, ver.Envelope.Type, ver.Envelope.Version)
	if err != nil {
		return nil, err
	}
	return &Decoded{Verified: *ver, Record: rec, Schema: found}, nil
}

package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"xdao.co/cred/cidutil"
)

// PublicKey is an EC public key as an uncompressed SEC1 point.
type PublicKey struct {
	Curve Curve
	Point []byte
}

// PrivateKey is an EC private scalar with its public point.
type PrivateKey struct {
	Curve  Curve
	D      []byte
	Public PublicKey
}

// NewPublicKey validates point against curve and normalizes it to the
// uncompressed encoding.
func NewPublicKey(curve Curve, point []byte) (*PublicKey, error) {
	if curve == Secp256k1 {
		pk, err := secp.ParsePubKey(point)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return &PublicKey{Curve: curve, Point: pk.SerializeUncompressed()}, nil
	}
	ec, ok := curve.nist()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, curve)
	}
	var x, y *big.Int
	if len(point) > 0 && (point[0] == 2 || point[0] == 3) {
		x, y = elliptic.UnmarshalCompressed(ec, point)
	} else {
		x, y = elliptic.Unmarshal(ec, point)
	}
	if x == nil {
		return nil, fmt.Errorf("%w: point is not on %s", ErrMalformedKey, curve)
	}
	return &PublicKey{Curve: curve, Point: elliptic.Marshal(ec, x, y)}, nil
}

// NewPrivateKey derives the public point for scalar d on curve.
func NewPrivateKey(curve Curve, d []byte) (*PrivateKey, error) {
	size := curve.byteLen()
	if size == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, curve)
	}
	if len(d) == 0 || len(d) > size {
		return nil, fmt.Errorf("%w: private scalar has %d bytes", ErrMalformedKey, len(d))
	}
	scalar := make([]byte, size)
	copy(scalar[size-len(d):], d)

	if curve == Secp256k1 {
		var k secp.ModNScalar
		if overflow := k.SetByteSlice(scalar); overflow || k.IsZero() {
			return nil, fmt.Errorf("%w: private scalar out of range", ErrMalformedKey)
		}
		priv := secp.NewPrivateKey(&k)
		return &PrivateKey{
			Curve:  curve,
			D:      scalar,
			Public: PublicKey{Curve: curve, Point: priv.PubKey().SerializeUncompressed()},
		}, nil
	}
	ec, _ := curve.nist()
	n := new(big.Int).SetBytes(scalar)
	if n.Sign() == 0 || n.Cmp(ec.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: private scalar out of range", ErrMalformedKey)
	}
	x, y := ec.ScalarBaseMult(scalar)
	return &PrivateKey{
		Curve:  curve,
		D:      scalar,
		Public: PublicKey{Curve: curve, Point: elliptic.Marshal(ec, x, y)},
	}, nil
}

// GenerateKey creates a fresh key pair. A nil random source means crypto/rand.
func GenerateKey(curve Curve, random io.Reader) (*PrivateKey, error) {
	if random == nil {
		random = rand.Reader
	}
	if curve == Secp256k1 {
		priv, err := secp.GeneratePrivateKeyFromRand(random)
		if err != nil {
			return nil, err
		}
		return NewPrivateKey(curve, priv.Serialize())
	}
	ec, ok := curve.nist()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, curve)
	}
	priv, err := ecdsa.GenerateKey(ec, random)
	if err != nil {
		return nil, err
	}
	return NewPrivateKey(curve, priv.D.FillBytes(make([]byte, curve.byteLen())))
}

// Sign signs digest and returns a DER ECDSA-Sig-Value.
//
// secp256k1 signatures are deterministic (RFC 6979). The NIST curves draw
// their nonce from crypto/rand.
func Sign(priv *PrivateKey, digest []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrMalformedKey)
	}
	if priv.Curve == Secp256k1 {
		k := secp.PrivKeyFromBytes(priv.D)
		return secpecdsa.Sign(k, digest).Serialize(), nil
	}
	ec, ok := priv.Curve.nist()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, priv.Curve)
	}
	x, y := elliptic.Unmarshal(ec, priv.Public.Point)
	if x == nil {
		return nil, fmt.Errorf("%w: public point is not on %s", ErrMalformedKey, priv.Curve)
	}
	k := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: ec, X: x, Y: y},
		D:         new(big.Int).SetBytes(priv.D),
	}
	return ecdsa.SignASN1(rand.Reader, k, digest)
}

// Verify reports whether der is a valid signature of digest under pub.
// Malformed keys or signatures verify as false.
func Verify(pub *PublicKey, digest, der []byte) bool {
	if pub == nil {
		return false
	}
	r, s, err := parseSignature(der)
	if err != nil {
		return false
	}
	if pub.Curve == Secp256k1 {
		pk, err := secp.ParsePubKey(pub.Point)
		if err != nil {
			return false
		}
		if len(r.Bytes()) > 32 || len(s.Bytes()) > 32 {
			return false
		}
		var rs, ss secp.ModNScalar
		if rs.SetByteSlice(r.Bytes()) || ss.SetByteSlice(s.Bytes()) {
			return false
		}
		return secpecdsa.NewSignature(&rs, &ss).Verify(digest, pk)
	}
	ec, ok := pub.Curve.nist()
	if !ok {
		return false
	}
	x, y := elliptic.Unmarshal(ec, pub.Point)
	if x == nil {
		return false
	}
	return ecdsa.Verify(&ecdsa.PublicKey{Curve: ec, X: x, Y: y}, digest, r, s)
}

// parseSignature reads SEQUENCE { r INTEGER, s INTEGER }. High-S values are
// accepted; other signers do not normalize them.
func parseSignature(der []byte) (*big.Int, *big.Int, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, cbasn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, ErrMalformedSignature
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, nil, ErrMalformedSignature
	}
	return r, s, nil
}

// Fingerprint is the CIDv1 (raw + sha2-256) of the key's DER SubjectPublicKeyInfo.
func (k *PublicKey) Fingerprint() string {
	der, err := k.MarshalPKIX()
	if err != nil {
		return ""
	}
	return cidutil.CIDv1RawSHA256(der)
}

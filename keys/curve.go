package keys

import (
	"crypto/elliptic"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
)

// Curve names a supported elliptic curve.
type Curve string

const (
	Secp256k1 Curve = "secp256k1"
	P192      Curve = "p192"
	P224      Curve = "p224"
	P256      Curve = "p256"
	P384      Curve = "p384"
	P521      Curve = "p521"
)

var (
	// ErrUnsupportedCurve is returned for curve identifiers outside the supported set.
	ErrUnsupportedCurve = errors.New("unsupported curve")
	// ErrMalformedKey is returned when PEM or DER key material cannot be parsed.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMalformedSignature is returned for signatures that are not DER ECDSA-Sig-Value.
	ErrMalformedSignature = errors.New("malformed signature")
)

var (
	oidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

	oidSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
	oidP192      = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 1}
	oidP224      = asn1.ObjectIdentifier{1, 3, 132, 0, 33}
	oidP256      = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidP384      = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	oidP521      = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
)

var curveOIDs = []struct {
	curve Curve
	oid   asn1.ObjectIdentifier
}{
	{Secp256k1, oidSecp256k1},
	{P192, oidP192},
	{P224, oidP224},
	{P256, oidP256},
	{P384, oidP384},
	{P521, oidP521},
}

// Curves lists every supported curve.
func Curves() []Curve {
	out := make([]Curve, 0, len(curveOIDs))
	for _, c := range curveOIDs {
		out = append(out, c.curve)
	}
	return out
}

// ParseCurve maps a curve name ("secp256k1", "p256", ...) to a Curve.
func ParseCurve(name string) (Curve, error) {
	for _, c := range curveOIDs {
		if string(c.curve) == name {
			return c.curve, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurve, name)
}

// CurveFromOID maps a named-curve OID to a Curve.
func CurveFromOID(oid asn1.ObjectIdentifier) (Curve, error) {
	for _, c := range curveOIDs {
		if c.oid.Equal(oid) {
			return c.curve, nil
		}
	}
	return "", fmt.Errorf("%w: oid %s", ErrUnsupportedCurve, oid)
}

// OID returns the named-curve object identifier.
func (c Curve) OID() asn1.ObjectIdentifier {
	for _, e := range curveOIDs {
		if e.curve == c {
			return e.oid
		}
	}
	return nil
}

// byteLen is the size of a scalar or coordinate on the curve.
func (c Curve) byteLen() int {
	switch c {
	case P192:
		return 24
	case P224:
		return 28
	case Secp256k1, P256:
		return 32
	case P384:
		return 48
	case P521:
		return 66
	}
	return 0
}

// nist returns the crypto/elliptic implementation for the NIST curves.
func (c Curve) nist() (elliptic.Curve, bool) {
	switch c {
	case P192:
		return p192(), true
	case P224:
		return elliptic.P224(), true
	case P256:
		return elliptic.P256(), true
	case P384:
		return elliptic.P384(), true
	case P521:
		return elliptic.P521(), true
	}
	return nil, false
}

var p192Params *elliptic.CurveParams

func init() {
	p192Params = &elliptic.CurveParams{Name: "P-192", BitSize: 192}
	p192Params.P = mustHex("fffffffffffffffffffffffffffffffeffffffffffffffff")
	p192Params.N = mustHex("ffffffffffffffffffffffff99def836146bc9b1b4d22831")
	p192Params.B = mustHex("64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1")
	p192Params.Gx = mustHex("188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012")
	p192Params.Gy = mustHex("07192b95ffc8da78631011ed6b24cdd573f977a11e794811")
}

// p192 is secp192r1. The standard library dropped it, so it runs on the
// generic CurveParams arithmetic, which is not constant time.
func p192() elliptic.Curve { return p192Params }

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("keys: bad curve constant " + s)
	}
	return n
}

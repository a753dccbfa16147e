package keys

import (
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	pemPublicKey    = "PUBLIC KEY"
	pemECPrivateKey = "EC PRIVATE KEY"
	pemPKCS8Key     = "PRIVATE KEY"
	pemECParameters = "EC PARAMETERS"
)

// ParsePublicKeyPEM reads the first PUBLIC KEY block of text.
func ParsePublicKeyPEM(text string) (*PublicKey, error) {
	rest := []byte(text)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no PUBLIC KEY block", ErrMalformedKey)
		}
		if block.Type == pemPublicKey {
			return ParsePKIX(block.Bytes)
		}
	}
}

// ParsePKIX parses a DER SubjectPublicKeyInfo carrying an EC key.
func ParsePKIX(der []byte) (*PublicKey, error) {
	var (
		spki, alg cryptobyte.String
		algOID    asn1.ObjectIdentifier
		curveOID  asn1.ObjectIdentifier
		point     []byte
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&spki, cbasn1.SEQUENCE) || !input.Empty() ||
		!spki.ReadASN1(&alg, cbasn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&algOID) ||
		!spki.ReadASN1BitStringAsBytes(&point) {
		return nil, fmt.Errorf("%w: invalid SubjectPublicKeyInfo", ErrMalformedKey)
	}
	if !algOID.Equal(oidPublicKeyECDSA) {
		return nil, fmt.Errorf("%w: algorithm %s is not EC", ErrUnsupportedCurve, algOID)
	}
	if !alg.ReadASN1ObjectIdentifier(&curveOID) {
		return nil, fmt.Errorf("%w: EC parameters are not a named curve", ErrUnsupportedCurve)
	}
	curve, err := CurveFromOID(curveOID)
	if err != nil {
		return nil, err
	}
	return NewPublicKey(curve, point)
}

// ParsePrivateKeyPEM reads an EC private key from text.
//
// SEC1 keys that omit their curve take it from a preceding EC PARAMETERS
// block, as written by "openssl ecparam -genkey".
func ParsePrivateKeyPEM(text string) (*PrivateKey, error) {
	var params Curve
	rest := []byte(text)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no private key block", ErrMalformedKey)
		}
		switch block.Type {
		case pemECParameters:
			var oid asn1.ObjectIdentifier
			in := cryptobyte.String(block.Bytes)
			if !in.ReadASN1ObjectIdentifier(&oid) {
				return nil, fmt.Errorf("%w: EC PARAMETERS is not a named curve", ErrUnsupportedCurve)
			}
			c, err := CurveFromOID(oid)
			if err != nil {
				return nil, err
			}
			params = c
		case pemECPrivateKey:
			return parseSEC1(block.Bytes, params)
		case pemPKCS8Key:
			return parsePKCS8(block.Bytes)
		}
	}
}

// parseSEC1 parses RFC 5915 ECPrivateKey. fallback supplies the curve when
// the structure does not name one.
func parseSEC1(der []byte, fallback Curve) (*PrivateKey, error) {
	var (
		seq      cryptobyte.String
		version  int
		d        []byte
		params   cryptobyte.String
		hasParam bool
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&version) ||
		!seq.ReadASN1Bytes(&d, cbasn1.OCTET_STRING) ||
		!seq.ReadOptionalASN1(&params, &hasParam, cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, fmt.Errorf("%w: invalid ECPrivateKey", ErrMalformedKey)
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: ECPrivateKey version %d", ErrMalformedKey, version)
	}
	curve := fallback
	if hasParam {
		var oid asn1.ObjectIdentifier
		if !params.ReadASN1ObjectIdentifier(&oid) {
			return nil, fmt.Errorf("%w: EC parameters are not a named curve", ErrUnsupportedCurve)
		}
		c, err := CurveFromOID(oid)
		if err != nil {
			return nil, err
		}
		curve = c
	}
	if curve == "" {
		return nil, fmt.Errorf("%w: private key does not name its curve", ErrMalformedKey)
	}
	return NewPrivateKey(curve, d)
}

func parsePKCS8(der []byte) (*PrivateKey, error) {
	var (
		seq, alg cryptobyte.String
		version  int
		algOID   asn1.ObjectIdentifier
		curveOID asn1.ObjectIdentifier
		inner    []byte
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&version) ||
		!seq.ReadASN1(&alg, cbasn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&algOID) ||
		!seq.ReadASN1Bytes(&inner, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: invalid PKCS#8 key", ErrMalformedKey)
	}
	if !algOID.Equal(oidPublicKeyECDSA) {
		return nil, fmt.Errorf("%w: algorithm %s is not EC", ErrUnsupportedCurve, algOID)
	}
	if !alg.ReadASN1ObjectIdentifier(&curveOID) {
		return nil, fmt.Errorf("%w: EC parameters are not a named curve", ErrUnsupportedCurve)
	}
	curve, err := CurveFromOID(curveOID)
	if err != nil {
		return nil, err
	}
	return parseSEC1(inner, curve)
}

// MarshalPKIX returns the DER SubjectPublicKeyInfo for k.
func (k *PublicKey) MarshalPKIX() ([]byte, error) {
	oid := k.Curve.OID()
	if oid == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, k.Curve)
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidPublicKeyECDSA)
			b.AddASN1ObjectIdentifier(oid)
		})
		b.AddASN1BitString(k.Point)
	})
	return b.Bytes()
}

// MarshalPEM returns k as a PUBLIC KEY PEM block.
func (k *PublicKey) MarshalPEM() (string, error) {
	der, err := k.MarshalPKIX()
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der})), nil
}

// TXTRecord returns the base64 SubjectPublicKeyInfo with no armor or line
// breaks, the form published in a DNS TXT record for the key id.
func (k *PublicKey) TXTRecord() (string, error) {
	der, err := k.MarshalPKIX()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// MarshalPEM returns k as a SEC1 EC PRIVATE KEY block that names its curve.
func (k *PrivateKey) MarshalPEM() (string, error) {
	oid := k.Curve.OID()
	if oid == nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurve, k.Curve)
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1OctetString(k.D)
		b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oid)
		})
		b.AddASN1(cbasn1.Tag(1).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
			b.AddASN1BitString(k.Public.Point)
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemECPrivateKey, Bytes: der})), nil
}

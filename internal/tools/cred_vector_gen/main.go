// cred_vector_gen prints deterministic signing vectors: one issuer key per
// curve derived from a fixed scalar, and a credential signed with it.
//
// Only secp256k1 signatures are reproducible (RFC 6979); NIST-curve
// signatures differ per run but always verify.
package main

import (
	"bytes"
	"fmt"
	"os"

	"xdao.co/cred/cred"
	"xdao.co/cred/keys"
)

var fields = []string{"20210511", "MODERNA", "COVID19", "012L20A", "28", "", "C28161", "RA", "500", "JANE DOE", "19820321"}

func mustKey(curve keys.Curve, seedByte byte) *keys.PrivateKey {
	// 20 bytes stays below the order of every supported curve.
	d := bytes.Repeat([]byte{seedByte}, 20)
	priv, err := keys.NewPrivateKey(curve, d)
	if err != nil {
		panic(err)
	}
	return priv
}

func main() {
	fmt.Printf("HASH=%s\n", cred.HashPayload(fields))
	fmt.Printf("PAYLOAD=%s\n", cred.BuildPayload(fields))
	fmt.Printf("DIGEST=%s\n\n", cred.DigestForSigning(cred.BuildPayload(fields)))

	for _, curve := range keys.Curves() {
		priv := mustKey(curve, 0xA1)
		pubPEM, err := priv.Public.MarshalPEM()
		if err != nil {
			panic(err)
		}
		privPEM, err := priv.MarshalPEM()
		if err != nil {
			panic(err)
		}
		env, err := cred.SignWithKey("badge", "2", priv, "vectors.example.org", fields)
		if err != nil {
			panic(err)
		}
		uri, err := env.Pack()
		if err != nil {
			panic(err)
		}
		ok, err := cred.Verify(pubPEM, env.Payload, env.Signature)
		if err != nil || !ok {
			fmt.Fprintf(os.Stderr, "%s: generated vector does not verify: %v\n", curve, err)
			os.Exit(1)
		}

		fmt.Printf("CURVE=%s\n", curve)
		fmt.Printf("FINGERPRINT=%s\n", priv.Public.Fingerprint())
		fmt.Printf("ENVELOPE-ID=%s\n", cred.EnvelopeID(uri))
		fmt.Printf("URI=%s\n", uri)
		fmt.Printf("---BEGIN---\n%s%s---END---\n\n", privPEM, pubPEM)
	}
}

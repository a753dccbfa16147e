// Package keys parses, stores and uses the ECDSA keys that sign credentials.
//
// Supported curves are secp256k1 and the NIST prime curves P-192, P-224,
// P-256, P-384 and P-521. Keys travel as PEM: SubjectPublicKeyInfo for public
// keys, SEC1 "EC PRIVATE KEY" (optionally preceded by "EC PARAMETERS") or
// PKCS#8 "PRIVATE KEY" for private keys.
//
// Sign and Verify operate on a caller-supplied digest. Deciding what is
// digested is the caller's concern.
//
// The filesystem KeyStore is a local convenience for the CLI and is not part
// of the envelope format.
package keys

package cred

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindDecode covers malformed base32, DER, PEM, payload escapes and envelope shape.
	KindDecode Kind = "Decode"
	// KindUnsupportedCurve is returned for a curve identifier outside the supported set.
	KindUnsupportedCurve Kind = "UnsupportedCurve"
	// KindTransport is a network failure. The key resolver never surfaces it directly.
	KindTransport Kind = "Transport"
	// KindNotFound means a key could not be resolved by any source.
	KindNotFound Kind = "NotFound"
	// KindVerification means the signature did not verify against the resolved key.
	KindVerification Kind = "Verification"
	KindInternal     Kind = "Internal"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g. CRED-ENV-001, CRED-SIG-401) naming the
// violated rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// WrapError returns a structured error wrapping cause.
func WrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

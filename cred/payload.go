package cred

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// FieldSeparator joins percent-encoded fields in a canonical payload.
	FieldSeparator = "/"
	// RecordSeparator (ASCII RS, 0x1E) joins fields for HashPayload.
	RecordSeparator = "\x1e"
)

// upper applies full Unicode upper-casing (e.g. "ß" becomes "SS").
// A Caser is not safe for concurrent use, so one is built per call.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// BuildPayload returns the canonical payload for fields: each value is
// upper-cased, percent-encoded as a URI component and joined with "/".
//
// Empty values are legal and produce empty segments. Casing is not restored
// by ParsePayload.
func BuildPayload(fields []string) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = EscapeComponent(upper(f))
	}
	return strings.Join(encoded, FieldSeparator)
}

// ParsePayload splits a canonical payload on "/" and percent-decodes each segment.
func ParsePayload(payload string) ([]string, error) {
	segments := strings.Split(payload, FieldSeparator)
	out := make([]string, len(segments))
	for i, s := range segments {
		v, err := url.PathUnescape(s)
		if err != nil {
			return nil, WrapError(KindDecode, "CRED-PAY-001", "invalid percent-encoding in payload field", err)
		}
		if !utf8.ValidString(v) {
			return nil, NewError(KindDecode, "CRED-PAY-002", "payload field is not valid UTF-8")
		}
		out[i] = v
	}
	return out, nil
}

// BuildHashPayload upper-cases fields and joins them with the record separator.
// No percent-encoding is applied; the result is only ever hashed.
func BuildHashPayload(fields []string) string {
	up := make([]string, len(fields))
	for i, f := range fields {
		up[i] = upper(f)
	}
	return strings.Join(up, RecordSeparator)
}

// EscapeComponent percent-encodes s over its UTF-8 bytes, leaving only
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) unescaped.
func EscapeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Package cursor maps internal uris to opaque, URL-safe tokens handed to front-ends.
//
// Cursors are a pure function of the uri: the same uri always yields the same cursor within a
// version, distinct uris never collide, and [Decode] reverses [Encode] exactly. Callers must
// treat the token as unstructured; the encoding may change between versions.
package cursor

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/desertthunder/medley/internal/shared"
)

// Strict decoding rejects non-canonical trailing bits, so each uri has exactly one valid token.
var encoding = base64.RawURLEncoding.Strict()

// Encode turns any byte sequence into a cursor.
func Encode(b []byte) string {
	return encoding.EncodeToString(b)
}

// EncodeString turns a uri into a cursor.
func EncodeString(uri string) string {
	return Encode([]byte(uri))
}

// Decode reverses [Encode]. Malformed tokens and payloads that are not UTF-8 text wrap [shared.ErrDecode].
func Decode(token string) (string, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not text", shared.ErrDecode)
	}
	return string(raw), nil
}

// MustDecode is [Decode] for tests and constants; it panics on malformed input.
func MustDecode(token string) string {
	uri, err := Decode(token)
	if err != nil {
		panic(err)
	}
	return uri
}

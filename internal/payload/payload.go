// Package payload normalizes binary audio and uploaded text into
// transport-safe forms: base64 strings for JSON bodies and data URIs
// for playable media references.
package payload

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode converts arbitrary bytes into standard base64. Defined for any
// input including empty; there is no rejection path.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode is the inverse of Encode.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return b, nil
}

// WAVDataURI wraps WAV bytes into a playable data URI.
func WAVDataURI(b []byte) string {
	return AudioDataURI("audio/wav", b)
}

// AudioDataURI wraps audio bytes of the given MIME type into a data URI.
// An empty mime falls back to a generic octet-stream tag so the reference
// stays well-formed even for unrecognized capture formats.
func AudioDataURI(mime string, b []byte) string {
	m := strings.TrimSpace(mime)
	if m == "" {
		m = "application/octet-stream"
	}
	// Browsers ignore codec parameters in data URIs; keep only the type.
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return "data:" + m + ";base64," + Encode(b)
}

// DecodeText interprets an uploaded file as UTF-8 text, stripping a
// leading byte-order mark if present.
func DecodeText(b []byte) string {
	s := string(b)
	return strings.TrimPrefix(s, "\ufeff")
}

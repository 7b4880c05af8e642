// Package codec provides the Base64 round-trip used to frame transaction
// payloads and broadcast headers.
package codec

import (
	"encoding/base64"
	"strings"
)

// Base64Encode encodes the UTF-8 bytes of s as standard Base64.
func Base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Base64Decode decodes standard Base64 back to a UTF-8 string, then trims
// every leading and trailing ASCII quote from the decoded plaintext, so
// that values surviving JSON string framing (where callers sometimes pass
// the quoted literal straight through) still decode cleanly.
func Base64Decode(s string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return strings.Trim(string(decoded), `"`), nil
}

package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenLength is the number of random bytes behind a link token. 16 bytes
// gives 128 bits of entropy; the token is the sole bearer credential for a
// share link, so it must come from a cryptographically secure source.
const tokenLength = 16

// NewToken returns a URL-safe random identifier for a secret link.
func NewToken() string {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

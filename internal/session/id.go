package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes of entropy back every session id. The encoded id never contains
// '.', which separates it from its signature in the cookie.
const idBytes = 32

func GenerateID() (string, error) {
	var b [idBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

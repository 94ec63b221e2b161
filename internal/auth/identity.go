package auth

import (
	"encoding/base64"
	"strings"
)

// UserNamespace prefixes every identity key in the user store.
const UserNamespace = "/_users/"

// EncodeKey derives the opaque identity key for a user. The key is the only
// thing a session holds, so it must be a pure function of its inputs and
// stable across restarts.
func EncodeKey(username, provider string) string {
	raw := strings.ToLower(username) + "@" + provider
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeKey reverses EncodeKey. It is used for logging and admin tooling;
// authorization always goes through the user store.
func DecodeKey(key string) (username, provider string, err error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", "", ErrMalformedKey
	}
	i := strings.LastIndex(string(raw), "@")
	if i <= 0 || i == len(raw)-1 {
		return "", "", ErrMalformedKey
	}
	return string(raw[:i]), string(raw[i+1:]), nil
}

// UserKey is the user store key for an identity key.
func UserKey(identityKey string) string {
	return UserNamespace + identityKey
}

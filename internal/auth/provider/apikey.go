package provider

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/site"
)

// APIKey authenticates requests carrying the process-wide access key.
// It never creates a session and never touches the user store.
type APIKey struct {
	secret string
	hashed bool
}

// NewAPIKey accepts the key in plain text or as a bcrypt hash.
func NewAPIKey(secret string) *APIKey {
	secret = strings.TrimSpace(secret)
	return &APIKey{
		secret: secret,
		hashed: isBcryptHash(secret),
	}
}

func (k *APIKey) Name() string { return NameAPIKey }

func (k *APIKey) Kind() Kind { return KindAPIKey }

// Register is a no-op: the key is process-wide and shared by every site.
func (k *APIKey) Register(context.Context, site.Site) error { return nil }

// MountRoutes mounts nothing; the key is only ever presented in a header.
func (k *APIKey) MountRoutes(gin.IRoutes, site.Site) {}

// Authenticate checks an Authorization header value. On success the caller
// gets an admin identity that exists only for the current request.
func (k *APIKey) Authenticate(header string) (*auth.User, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, &auth.AuthenticationError{
			Provider: NameAPIKey,
			Reason:   "unsupported authorization scheme",
			Token:    header,
		}
	}
	if !k.matches(token) {
		return nil, &auth.AuthenticationError{
			Provider: NameAPIKey,
			Reason:   "unknown apikey",
			Token:    token,
		}
	}
	return &auth.User{
		Provider:  NameAPIKey,
		AuthLevel: auth.LevelAdmin,
	}, nil
}

func (k *APIKey) matches(token string) bool {
	if k.secret == "" || token == "" {
		return false
	}
	if k.hashed {
		return bcrypt.CompareHashAndPassword([]byte(k.secret), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(k.secret), []byte(token)) == 1
}

// HashKey hashes an access key for storage in CLAY_ACCESS_KEY.
func HashKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(token), true
	default:
		return "", false
	}
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

package auth

import "fmt"

// Level is a coarse authorization tier.
type Level string

const (
	LevelWrite Level = "write"
	LevelAdmin Level = "admin"
)

func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelWrite, LevelAdmin:
		return Level(s), nil
	default:
		return "", fmt.Errorf("auth: unknown level %q", s)
	}
}

// CheckLevel reports whether userLevel satisfies required. An empty user
// level is a programming error: a record reaching an authorization check must
// carry an explicit level.
func CheckLevel(userLevel, required Level) (bool, error) {
	if userLevel == "" {
		return false, ErrNoAuthLevel
	}
	if userLevel == LevelAdmin {
		return true, nil
	}
	return userLevel == required, nil
}

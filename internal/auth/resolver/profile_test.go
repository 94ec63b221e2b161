package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileLookup(t *testing.T) {
	p := Profile{
		"displayName": "Alice A",
		"emails": []any{
			map[string]any{"value": "alice@example.com"},
		},
		"photos":  []any{},
		"age":     float64(42),
		"address": map[string]any{"city": "Brooklyn"},
	}

	tests := map[string]string{
		"displayName":     "Alice A",
		"emails[0].value": "alice@example.com",
		"emails[1].value": "",
		"photos[0].value": "",
		"address.city":    "Brooklyn",
		"address":         "",
		"age":             "42",
		"missing":         "",
		"":                "",
	}
	for path, want := range tests {
		assert.Equal(t, want, p.Lookup(path), "path %q", path)
	}
}

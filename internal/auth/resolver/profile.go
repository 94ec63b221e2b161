package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldMap names where a provider keeps each profile field. Paths are dotted
// and may index arrays, e.g. "emails[0].value".
type FieldMap struct {
	Provider string
	Username string
	Name     string
	ImageURL string
}

// Profile is the raw claim set a provider hands back.
type Profile map[string]any

// Lookup resolves a field path to a string. Missing paths and non-scalar
// values yield "".
func (p Profile) Lookup(path string) string {
	if path == "" {
		return ""
	}

	var cur any = map[string]any(p)
	for _, seg := range strings.Split(path, ".") {
		name, idx, hasIdx := splitIndex(seg)
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[name]
		if !ok {
			return ""
		}
		if hasIdx {
			list, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return ""
			}
			cur = list[idx]
		}
	}

	switch v := cur.(type) {
	case string:
		return v
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func splitIndex(seg string) (name string, idx int, ok bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return seg, 0, false
	}
	return seg[:open], n, true
}

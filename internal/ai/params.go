package ai

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Params is the request body minus "action", as decoded from JSON.
type Params map[string]any

// String returns the trimmed string at k, or "" when absent or not a string.
func (p Params) String(k string) string {
	s, _ := p[k].(string)
	return strings.TrimSpace(s)
}

func (p Params) StringOr(k, def string) string {
	if s := p.String(k); s != "" {
		return s
	}
	return def
}

// Int returns the number at k. Numeric strings such as "10" are accepted.
// Missing, zero or non-numeric values yield def.
func (p Params) Int(k string, def int) int {
	switch v := p[k].(type) {
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
			return int(f)
		}
	case float64:
		if v != 0 {
			return int(v)
		}
	case int:
		if v != 0 {
			return v
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n != 0 {
			return int(n)
		}
	}
	return def
}

// Float returns the number at k, or def when absent. Zero is a valid value.
func (p Params) Float(k string, def float64) float64 {
	switch v := p[k].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

// Has reports whether k is present and not null.
func (p Params) Has(k string) bool {
	v, ok := p[k]
	return ok && v != nil
}

// truthy mirrors "set" for optional pass-through fields: non-empty strings,
// non-zero numbers, true, and any non-empty object or array.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// Package normalize provides absent-value coercion shared by every
// reconciliation stage. Source exports are full of holes: empty strings,
// whitespace-only strings, NaN/Inf floats and malformed dates all mean
// "no value" and must collapse to nil before any merge policy runs.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Str returns a pointer to the string form of v, or nil when v carries
// no value (nil, empty or whitespace-only string).
func Str(v any) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return &s
	case *string:
		if s == nil {
			return nil
		}
		return Str(*s)
	default:
		out := fmt.Sprintf("%v", v)
		if strings.TrimSpace(out) == "" {
			return nil
		}
		return &out
	}
}

// Float returns a pointer to the float64 form of v, or nil when v is
// absent, NaN, ±Inf, or not parseable as a number.
func Float(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Int returns a pointer to the int form of v, or nil when absent or
// not coercible. Fractional floats are truncated.
func Int(v any) *int {
	f := Float(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

// Date returns the date carried by v, or nil when absent or malformed.
// Accepts time.Time and the ISO layouts the source exports use.
func Date(v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		if d.IsZero() {
			return nil
		}
		return &d
	case *time.Time:
		if d == nil {
			return nil
		}
		return Date(*d)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}

// Year extracts a four-digit year from v: time.Time values use their
// calendar year, strings use their first four characters. Coercion
// failures yield nil, never an error.
func Year(v any) *int {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		y := d.Year()
		return &y
	case int:
		return Int(d)
	case int64:
		return Int(d)
	case float64:
		return Int(d)
	case string:
		s := strings.TrimSpace(d)
		if len(s) < 4 {
			return nil
		}
		y, err := strconv.Atoi(s[:4])
		if err != nil {
			return nil
		}
		return &y
	default:
		return nil
	}
}

// List flattens v into a []string. Postgres TEXT[] columns scan as
// []string or []any; flat comma-separated strings are split. Elements
// are trimmed and empties dropped. Absent values yield an empty slice.
func List(v any) []string {
	switch l := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if t := strings.TrimSpace(e); t != "" {
				out = append(out, t)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if e == nil {
				continue
			}
			if t := strings.TrimSpace(fmt.Sprintf("%v", e)); t != "" {
				out = append(out, t)
			}
		}
		return out
	case string:
		if strings.TrimSpace(l) == "" {
			return nil
		}
		parts := strings.Split(l, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
		return out
	default:
		return nil
	}
}

// StripQuotes removes surrounding single/double quotes and whitespace.
func StripQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, `'"`))
}

// UnionCaseInsensitive merges string lists into one, deduplicated by
// lowercased form. The first occurrence wins: its original casing and
// relative position are preserved. Surrounding quotes are stripped
// before comparison. Returns nil when nothing survives.
func UnionCaseInsensitive(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, raw := range list {
			name := StripQuotes(raw)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

package grading

import "strings"

// Normalize is the canonical comparable form of an answer: trimmed,
// lower-cased, with every whitespace run collapsed to one space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeValue normalizes a loosely typed answer value. Anything that is
// not a string (nil, numbers, objects) normalizes to "".
func NormalizeValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return Normalize(t)
	case []byte:
		return Normalize(string(t))
	default:
		return ""
	}
}

// normalizeSet normalizes each value, dropping empties and duplicates while
// keeping first-seen order.
func normalizeSet(vals []string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		n := Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

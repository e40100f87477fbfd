package persistence

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFieldLength caps every stored string, in characters.
const MaxFieldLength = 1000

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// SanitizeString cleans one string field: angle brackets removed, NFC
// normalization, surrounding space trimmed and length capped at MaxFieldLength.
// It never fails and SanitizeString(SanitizeString(s)) == SanitizeString(s).
func SanitizeString(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = norm.NFC.String(angleBrackets.Replace(s))
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxFieldLength {
		s = truncateRunes(s, MaxFieldLength)
		// Truncation can end inside a combining sequence or after a space.
		s = strings.TrimSpace(norm.NFC.String(s))
	}
	return s
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Sanitize returns a generic copy of v with every string value cleaned by
// SanitizeString, recursively through objects and lists. Object keys and
// numbers are kept as they are.
func Sanitize(v any) (any, error) {
	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value: %w", err)
	}

	var tree any
	if err := jsonAPI.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return sanitizeTree(tree), nil
}

// SanitizeRecord returns v as it will be read back after Save: every string
// field cleaned, everything else unchanged.
func SanitizeRecord[T any](v T) (T, error) {
	var out T
	clean, err := Sanitize(v)
	if err != nil {
		return out, err
	}
	data, err := jsonAPI.Marshal(clean)
	if err != nil {
		return out, fmt.Errorf("failed to serialize value: %w", err)
	}
	if err := jsonAPI.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

func sanitizeTree(node any) any {
	switch n := node.(type) {
	case string:
		return SanitizeString(n)
	case map[string]any:
		for k, child := range n {
			n[k] = sanitizeTree(child)
		}
		return n
	case []any:
		for i, child := range n {
			n[i] = sanitizeTree(child)
		}
		return n
	default:
		return n
	}
}

// Package redact masks PII in outward payloads and persisted traces. Every
// function here is pure and deterministic: no I/O, no shared state.
//
// Grounded on no single teacher file — the corpus carries no PII-masking
// library (see DESIGN.md), so this traversal is hand-written over regexp
// and the stdlib only.
package redact

import (
	"regexp"
	"strings"
)

const (
	panPlaceholder   = "[REDACTED_PAN]"
	phonePlaceholder = "[REDACTED_PHONE]"
	maskedTooShort   = "***masked***"
)

var (
	panPattern   = regexp.MustCompile(`\d{13,19}`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// String masks PAN, email, and phone patterns in s. Matching is applied in
// a fixed order — PAN, then email, then phone — since a PAN match and a
// phone match can both claim an overlapping digit run; PAN takes priority.
func String(s string) string {
	if s == "" {
		return s
	}
	out := panPattern.ReplaceAllString(s, panPlaceholder)
	out = emailPattern.ReplaceAllStringFunc(out, maskEmail)
	out = phonePattern.ReplaceAllString(out, phonePlaceholder)
	return out
}

func maskEmail(match string) string {
	at := strings.IndexByte(match, '@')
	if at < 0 {
		return match
	}
	local, domain := match[:at], match[at:]
	if len(local) <= 2 {
		return local + "***" + domain
	}
	return local[:2] + "***" + domain
}

// CustomerID masks a customer identifier: first 4 + "***" + last 2
// characters, or a fixed placeholder if shorter than 8 characters.
func CustomerID(id string) string {
	if len(id) < 8 {
		return maskedTooShort
	}
	return id[:4] + "***" + id[len(id)-2:]
}

// Value recursively redacts every string-valued leaf of v. Supported
// containers are map[string]interface{} and []interface{}, the shapes
// produced by decoding JSON; anything else (numbers, bools, nil) passes
// through untouched. Idempotent: Value(Value(x)) == Value(x).
func Value(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Value(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}

// StringSlice redacts each element of a []string, the common shape for
// Reasons/Citations fields.
func StringSlice(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}

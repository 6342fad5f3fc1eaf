// Package redact removes sensitive content from strings and structured values
// before they cross the process boundary (logs, audit events, stored payloads).
// All functions are pure and safe for concurrent use.
package redact

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

const (
	// Redacted replaces sensitive field values and key material.
	Redacted = "[REDACTED]"
	// RedactedJWT replaces JWT-shaped token triples.
	RedactedJWT = "[JWT_REDACTED]"
	// RedactedCC replaces credit-card-shaped digit runs.
	RedactedCC = "[CC_REDACTED]"
	// RedactedSSN replaces SSN-shaped digit runs.
	RedactedSSN = "[SSN_REDACTED]"
	// RedactedEmail replaces the local part of email addresses.
	RedactedEmail = "[EMAIL]"
)

// rule pairs a token-shape pattern with its replacement. Rules target disjoint
// token formats, so their application order does not change the result.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var stringRules = []rule{
	// Bearer credentials: fixed prefixes followed by at least 20 URL-safe characters.
	{regexp.MustCompile(`\b(ak_live_|ak_test_|sk_live_|sk_test_|pk_live_|pk_test_)[A-Za-z0-9_-]{20,}`), "${1}" + Redacted},
	// JWT triples: base64url header starting with eyJ, then payload and signature.
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), RedactedJWT},
	// Email addresses: local part replaced, domain preserved.
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`), RedactedEmail + "@${1}"},
	// Credit-card-shaped 16-digit groups, optionally separated.
	{regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`), RedactedCC},
	// SSN-shaped digit runs.
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), RedactedSSN},
	// IPv4: keep the first two octets, mask the host part.
	{regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.\d{1,3}\.\d{1,3}\b`), "${1}.${2}.x.x"},
}

// sensitiveFieldTokens are matched as case-insensitive substrings of record
// keys (after stripping separators). A matched key has its value replaced
// wholesale, never partially redacted.
var sensitiveFieldTokens = []string{
	"password",
	"secret",
	"token",
	"key",
	"auth",
	"credential",
	"private",
	"ssn",
	"creditcard",
}

var fieldNormalizer = strings.NewReplacer("_", "", "-", "", " ", "", ".", "")

// SanitizeString applies every redaction rule to s. Idempotent: already
// redacted markers are stable under re-application.
func SanitizeString(s string) string {
	for _, r := range stringRules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SensitiveField reports whether a record key names sensitive content.
func SensitiveField(key string) bool {
	normalized := fieldNormalizer.Replace(strings.ToLower(key))
	for _, token := range sensitiveFieldTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

// SanitizeValue recursively sanitizes an arbitrary value. Strings pass through
// SanitizeString, sequences sanitize each element, records sanitize each value
// with sensitive keys replaced wholesale, and errors collapse to their type
// name plus a sanitized message. Scalars pass through unchanged.
func SanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case error:
		return map[string]interface{}{
			"name":    fmt.Sprintf("%T", val),
			"message": SanitizeString(val.Error()),
		}
	case string:
		return SanitizeString(val)
	case []byte:
		return SanitizeString(string(val))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if SensitiveField(k) {
				out[k] = Redacted
				continue
			}
			out[k] = SanitizeValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = SanitizeValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = SanitizeString(item)
		}
		return out
	}
	return sanitizeReflected(v)
}

// sanitizeReflected covers maps and slices with element types the fast paths
// above do not name. Anything else is returned as-is.
func sanitizeReflected(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if SensitiveField(k) {
				out[k] = Redacted
				continue
			}
			out[k] = SanitizeValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = SanitizeValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

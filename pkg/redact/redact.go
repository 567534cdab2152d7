// Package redact masks sensitive fields in structured values before they are
// logged or persisted. Masking is irreversible: matched keys keep their name
// but their value is replaced with Marker at any nesting depth.
package redact

import "strings"

// Marker replaces the value of every matched key.
const Marker = "[REDACTED]"

// denylist holds normalized key names that must never reach a log or audit
// sink. Normalization (see normalize) makes the match case- and
// separator-insensitive, so "accessToken", "access_token" and "Access-Token"
// all hit the same entry.
var denylist = map[string]struct{}{
	"password":     {},
	"token":        {},
	"accesstoken":  {},
	"refreshtoken": {},
	"apikey":       {},
	"xapikey":      {}, // the x-api-key header; the leading x survives normalization
	"secret":       {},
	"creditcard":   {},
	"cardnumber":   {},
	"cvv":          {},
	"ssn":          {},
	"bankaccount":  {},
	"privatekey":   {},
	"authorization": {},
	"cookie":        {},
}

func normalize(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if r == '-' || r == '_' {
			continue
		}
		if 'A' <= r && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Sensitive reports whether the key is on the denylist.
func Sensitive(key string) bool {
	_, ok := denylist[normalize(key)]
	return ok
}

// Sanitize returns a deep copy of v with every denylisted key's value
// replaced by Marker. It walks maps and slices recursively; scalar values
// and unknown container types pass through unchanged. The input is never
// mutated.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if Sensitive(k) {
				out[k] = Marker
			} else {
				out[k] = Sanitize(val)
			}
		}
		return out

	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if Sensitive(k) {
				out[k] = Marker
			} else {
				out[k] = val
			}
		}
		return out

	case map[string][]string:
		out := make(map[string][]string, len(t))
		for k, val := range t {
			if Sensitive(k) {
				out[k] = []string{Marker}
			} else {
				out[k] = append([]string(nil), val...)
			}
		}
		return out

	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Sanitize(e)
		}
		return out

	default:
		return v
	}
}

// SanitizeMap is Sanitize specialized for the common decoded-JSON-body case.
func SanitizeMap(m map[string]any) map[string]any {
	return Sanitize(m).(map[string]any)
}

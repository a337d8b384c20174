package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// checkoutPrefix marks the fields covered by the bank gateway signature.
const checkoutPrefix = "checkout-"

// Sign returns the hex HMAC-SHA256 of the signed fields: every key starting
// with "checkout-" (case-insensitive), sorted, rendered as "key:value" and
// joined by newlines, with body appended as the last line when non-empty.
func Sign(secret string, fields map[string]string, body []byte) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasPrefix(strings.ToLower(k), checkoutPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		lines = append(lines, k+":"+fields[k])
	}
	if len(body) > 0 {
		lines = append(lines, string(body))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against Sign in constant time.
func Verify(secret string, fields map[string]string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	want := Sign(secret, fields, body)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}

// checkoutFields collects the signed fields from query parameters, falling
// back to headers. Keys are lowercased.
func checkoutFields(q url.Values, h http.Header) map[string]string {
	fields := make(map[string]string)
	for k, v := range q {
		if strings.HasPrefix(strings.ToLower(k), checkoutPrefix) && len(v) > 0 {
			fields[strings.ToLower(k)] = v[0]
		}
	}
	if len(fields) > 0 {
		return fields
	}
	for k, v := range h {
		if strings.HasPrefix(strings.ToLower(k), checkoutPrefix) && len(v) > 0 {
			fields[strings.ToLower(k)] = v[0]
		}
	}
	return fields
}

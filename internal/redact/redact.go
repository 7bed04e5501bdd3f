// Package redact masks secrets before they reach audit logs and limits how
// much recovered plaintext or key material is written alongside them.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	neverPersistKey = "never_persist"
	redactedSecret  = "[REDACTED_SECRET]"

	// DefaultPreviewLen is the number of bytes Preview keeps.
	DefaultPreviewLen = 24
)

var (
	kvSecretRe  = regexp.MustCompile(`(?i)((?:api|token|secret|key|password)[-_ ]*(?:id|key|token)?\s*[:=]\s*)(['\"]?)([A-Za-z0-9+/=_\-]{8,})(['\"]?)`)
	bearerRe    = regexp.MustCompile(`(?i)\b(bearer|token)\s+([A-Za-z0-9._\-]{10,})`)
	longTokenRe = regexp.MustCompile(`\b[A-Za-z0-9]{48,}\b`)
)

// String masks bearer tokens, key=value secrets and long opaque tokens.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2[REDACTED_SECRET]$4`)
	masked = bearerRe.ReplaceAllString(masked, `$1 [REDACTED_SECRET]`)
	masked = longTokenRe.ReplaceAllString(masked, redactedSecret)
	return masked
}

// Preview renders at most n bytes of data for a log line. Printable UTF-8 is
// quoted; anything else is shown as hex. Truncation is noted with the number
// of bytes left out.
func Preview(data []byte, n int) string {
	if n <= 0 {
		n = DefaultPreviewLen
	}
	head := data
	if len(head) > n {
		head = head[:n]
		for len(head) > 0 && !utf8.Valid(head) {
			head = head[:len(head)-1]
		}
	}
	var out string
	if printable(head) {
		out = fmt.Sprintf("%q", head)
	} else {
		out = "0x" + hex.EncodeToString(head)
	}
	if rest := len(data) - len(head); rest > 0 {
		out += fmt.Sprintf("...(+%d bytes)", rest)
	}
	return out
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
		if r == 0x7f {
			return false
		}
	}
	return true
}

// Fingerprint identifies key material without revealing it: the key length
// and the first eight hex digits of its SHA-256.
func Fingerprint(key []byte) string {
	if len(key) == 0 {
		return "empty"
	}
	sum := sha256.Sum256(key)
	return fmt.Sprintf("len=%d sha256=%s", len(key), hex.EncodeToString(sum[:4]))
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case []byte:
		return Preview(v, DefaultPreviewLen)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map redacts sensitive values within a map. Keys listed under
// "never_persist" are replaced outright and the list itself is dropped.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	var mask []string
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			mask = append(mask, neverPersistList(v)...)
			continue
		}
		out[k] = Interface(v)
	}
	for _, key := range mask {
		if _, ok := out[key]; ok {
			out[key] = redactedSecret
		}
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

func neverPersistList(value any) []string {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, elem := range v {
			raw = append(raw, fmt.Sprint(elem))
		}
	}
	out := raw[:0:0]
	for _, key := range raw {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, key)
		}
	}
	return out
}

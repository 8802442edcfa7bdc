package logging

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9._\-]{10,})`)
	jwtRe      = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
	kvSecretRe = regexp.MustCompile(`(?i)((?:secret|token|password)\s*[:=]\s*)(['"]?)([^\s'"]{4,})(['"]?)`)
)

// sensitiveKeys never reach the audit trail: recovered keys and plaintexts
// stay in the history store, credentials stay in memory.
var sensitiveKeys = map[string]struct{}{
	"key":           {},
	"key_hex":       {},
	"plaintext":     {},
	"token":         {},
	"authorization": {},
	"jwt_secret":    {},
	"static_token":  {},
}

func redactString(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	out := bearerRe.ReplaceAllString(in, "$1 "+redacted)
	out = jwtRe.ReplaceAllString(out, redacted)
	out = kvSecretRe.ReplaceAllString(out, "$1$2"+redacted+"$4")
	return out
}

func redactMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = redactString(val)
		case map[string]any:
			out[k] = redactMetadata(val)
		default:
			out[k] = v
		}
	}
	return out
}

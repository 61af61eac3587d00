package logger

import (
	"net/http"
	"strings"
)

// Headers that must never reach the logs in clear text. Webhook signatures
// are HMACs derived from the shared secret, so they are masked too.
var maskedHeaders = map[string]struct{}{
	"authorization":       {},
	"x-fedapay-signature": {},
	"idempotency-key":     {},
}

// MaskBearer masks a bearer token, preserving the scheme and the last four
// characters.
func MaskBearer(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + maskTail(parts[1])
	}
	return maskTail(value)
}

// MaskPhone keeps the last two digits of a phone number.
func MaskPhone(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 2 {
		return "****"
	}
	return "****" + value[len(value)-2:]
}

// MaskHeaders returns a loggable copy of request headers with sensitive
// values masked.
func MaskHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		lower := strings.ToLower(strings.TrimSpace(key))
		if lower == "authorization" {
			out[key] = MaskBearer(joined)
			continue
		}
		if _, sensitive := maskedHeaders[lower]; sensitive {
			out[key] = maskTail(joined)
			continue
		}
		out[key] = joined
	}
	return out
}

func maskTail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}

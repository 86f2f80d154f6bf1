package logger

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Redacted replaces any value whose key identifies personal data or a credential.
const Redacted = "[REDACTED]"

var (
	sensitiveKeys = map[string]struct{}{
		"name":            {},
		"firstname":       {},
		"lastname":        {},
		"fullname":        {},
		"email":           {},
		"phone":           {},
		"phonenumber":     {},
		"phonecode":       {},
		"contactnumber":   {},
		"mobile":          {},
		"address":         {},
		"address1":        {},
		"address2":        {},
		"addressline1":    {},
		"addressline2":    {},
		"street":          {},
		"city":            {},
		"postalcode":      {},
		"zipcode":         {},
		"shipping":        {},
		"dob":             {},
		"dateofbirth":     {},
		"signature":       {},
		"token":           {},
		"authorization":   {},
		"apikey":          {},
		"password":        {},
		"secret":          {},
		"walletaddress":   {},
		"medicalrecord":   {},
		"medicalhistory":  {},
		"xauthapikey":     {},
		"xauthsignature":  {},
		"accesstoken":     {},
		"refreshtoken":    {},
		"kyclink":         {},
		"shippingaddress": {},
	}
	sensitiveSuffixes = []string{"email", "phone", "token", "signature", "secret", "password", "address", "apikey"}

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+\d[\d\s\-]{7,}\d`)
)

// IsSensitiveKey reports whether a field name identifies data that must never
// reach a log line.
func IsSensitiveKey(key string) bool {
	normalized := normalizeKey(key)
	if normalized == "" {
		return false
	}
	if _, ok := sensitiveKeys[normalized]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// Redact walks maps, slices and JSON documents and masks sensitive keys.
func Redact(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = redactField(key, inner)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = redactField(key, inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = Redact(inner)
		}
		return out
	case json.RawMessage:
		return json.RawMessage(RedactJSON(v))
	case string:
		return RedactText(v)
	default:
		return v
	}
}

// RedactJSON masks sensitive keys inside a JSON document. Input that is not
// valid JSON is treated as free text.
func RedactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return []byte(RedactText(string(raw)))
	}
	out, err := json.Marshal(Redact(decoded))
	if err != nil {
		return []byte(Redacted)
	}
	return out
}

// RedactText masks embedded JSON payloads, email addresses and phone numbers
// in free-form text such as upstream error messages.
func RedactText(text string) string {
	if text == "" {
		return text
	}
	if idx := strings.IndexAny(text, "{["); idx >= 0 {
		candidate := strings.TrimSpace(text[idx:])
		if json.Valid([]byte(candidate)) {
			text = text[:idx] + string(RedactJSON([]byte(candidate)))
		}
	}
	text = emailPattern.ReplaceAllString(text, Redacted)
	return phonePattern.ReplaceAllString(text, Redacted)
}

func redactField(key string, value any) any {
	if IsSensitiveKey(key) {
		if value == nil {
			return nil
		}
		return Redacted
	}
	return Redact(value)
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package drgreen

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/angelmondragon/greengate/pkg/config"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

const (
	HeaderAPIKey    = "x-auth-apikey"
	HeaderSignature = "x-auth-signature"
)

// KeyEncoding selects how the configured signing key is turned into HMAC key bytes.
type KeyEncoding string

const (
	KeyEncodingAuto   KeyEncoding = config.KeyEncodingAuto
	KeyEncodingBase64 KeyEncoding = config.KeyEncodingBase64
	KeyEncodingRaw    KeyEncoding = config.KeyEncodingRaw
)

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

// Signer produces the x-auth-signature header: Base64(HMAC-SHA256(payload, key)).
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	apiKey string
	key    []byte
}

// NewSigner validates the key material up front. Empty or undecodable keys are
// configuration errors.
func NewSigner(apiKey, secretKey string, encoding KeyEncoding) (*Signer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "drgreen api key is not configured")
	}
	key, err := decodeKey(strings.TrimSpace(secretKey), encoding)
	if err != nil {
		return nil, err
	}
	return &Signer{apiKey: apiKey, key: key}, nil
}

func decodeKey(secret string, encoding KeyEncoding) ([]byte, error) {
	if secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "drgreen signing key is not configured")
	}
	switch KeyEncoding(strings.ToLower(string(encoding))) {
	case KeyEncodingRaw:
		return []byte(secret), nil
	case KeyEncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil || len(decoded) == 0 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "drgreen signing key is not valid base64")
		}
		return decoded, nil
	case KeyEncodingAuto, "":
		if decoded, ok := looksBase64(secret); ok {
			return decoded, nil
		}
		return []byte(secret), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "unknown signing key encoding "+string(encoding))
	}
}

// looksBase64 accepts only padded standard-alphabet input that decodes cleanly.
func looksBase64(secret string) ([]byte, bool) {
	if len(secret)%4 != 0 || !base64Pattern.MatchString(secret) {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(decoded) == 0 {
		return nil, false
	}
	return decoded, true
}

// Sign returns the Base64 HMAC-SHA256 of payload.
func (s *Signer) Sign(payload []byte) (string, error) {
	if s == nil || len(s.key) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "drgreen signer is not configured")
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Headers returns the authentication headers for a canonical payload.
func (s *Signer) Headers(payload []byte) (http.Header, error) {
	signature, err := s.Sign(payload)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set(HeaderAPIKey, s.apiKey)
	headers.Set(HeaderSignature, signature)
	return headers, nil
}

// CanonicalQuery encodes query parameters sorted by key. The same string is
// signed and sent on the wire.
func CanonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	return values.Encode()
}

// CanonicalBody renders a request body as compact JSON. Raw JSON input is
// compacted rather than re-encoded so caller key order is preserved.
func CanonicalBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return []byte{}, nil
	case json.RawMessage:
		return compactJSON(v)
	case []byte:
		return compactJSON(v)
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
	}
	return encoded, nil
}

func compactJSON(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body is not valid json")
	}
	return buf.Bytes(), nil
}

package proxy

import (
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/validate"
)

// Params is the decoded "data" object of a proxy request.
type Params map[string]any

// String returns the param as trimmed text. Numbers and booleans are
// formatted; other shapes read as empty.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the param as an int, or def when absent or invalid.
func (p Params) Int(key string, def int) int {
	raw := p.String(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Bool reports whether the param is true or "true".
func (p Params) Bool(key string) bool {
	v, _ := strconv.ParseBool(p.String(key))
	return v
}

// Set stores a value, allocating the map when needed.
func (p *Params) Set(key string, value any) {
	if *p == nil {
		*p = Params{}
	}
	(*p)[key] = value
}

// Decode re-encodes the params into dest and validates it.
func (p Params) Decode(dest any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid params")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid params")
	}
	return validate.Struct(dest)
}

// Without returns a copy of the params minus the given keys.
func (p Params) Without(keys ...string) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

package drgreen

import (
	"bytes"
	"encoding/json"
)

// Kind tags the shape a normalized upstream payload resolved to.
type Kind int

const (
	KindEmpty Kind = iota
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "empty"
	}
}

// Payload is the single representation of every upstream response shape.
// Exactly one of Items (KindList) or Object (KindObject) is populated.
type Payload struct {
	Kind   Kind
	Items  []json.RawMessage
	Object json.RawMessage
	// Meta holds pagination metadata when the upstream sends it.
	Meta json.RawMessage
}

// collectionKeys name the arrays the upstream wraps lists in.
var collectionKeys = []string{"collection", "strains", "clients", "orders", "carts", "results", "records", "rows", "list"}

var metaKeys = []string{"pageMetaDto", "meta", "pagination"}

// Normalize resolves the known upstream shapes:
//
//	[...]
//	{"data": [...]}
//	{"data": {"data": [...]}}
//	{"data": {"<collection>": [...]}}
//	{"data": {...}}
//	{...}
//
// Anything else, including invalid JSON, becomes KindEmpty.
func Normalize(raw []byte) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{Kind: KindEmpty}
	}
	switch trimmed[0] {
	case '[':
		return listPayload(trimmed, nil)
	case '{':
	default:
		return Payload{Kind: KindEmpty}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return Payload{Kind: KindEmpty}
	}
	data, ok := top["data"]
	if !ok {
		return Payload{Kind: KindObject, Object: json.RawMessage(trimmed)}
	}
	return normalizeData(bytes.TrimSpace(data), pickMeta(top), 0)
}

func normalizeData(data []byte, meta json.RawMessage, depth int) Payload {
	if len(data) == 0 {
		return Payload{Kind: KindEmpty}
	}
	switch data[0] {
	case '[':
		return listPayload(data, meta)
	case '{':
	default:
		return Payload{Kind: KindEmpty}
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err != nil {
		return Payload{Kind: KindEmpty}
	}
	if innerMeta := pickMeta(inner); innerMeta != nil {
		meta = innerMeta
	}
	if _, isEntity := inner["id"]; !isEntity {
		if nested, ok := inner["data"]; ok && depth == 0 {
			return normalizeData(bytes.TrimSpace(nested), meta, depth+1)
		}
		for _, key := range collectionKeys {
			if value, ok := inner[key]; ok && isArray(value) {
				return listPayload(bytes.TrimSpace(value), meta)
			}
		}
	}
	return Payload{Kind: KindObject, Object: json.RawMessage(data), Meta: meta}
}

func listPayload(raw []byte, meta json.RawMessage) Payload {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Payload{Kind: KindEmpty}
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return Payload{Kind: KindList, Items: items, Meta: meta}
}

func pickMeta(fields map[string]json.RawMessage) json.RawMessage {
	for _, key := range metaKeys {
		if value, ok := fields[key]; ok && len(bytes.TrimSpace(value)) > 0 && string(bytes.TrimSpace(value)) != "null" {
			return value
		}
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Value renders the payload for the response envelope: a list for KindList,
// the object for KindObject and an empty list otherwise.
func (p Payload) Value() any {
	switch p.Kind {
	case KindList:
		return p.Items
	case KindObject:
		return p.Object
	default:
		return []json.RawMessage{}
	}
}

// DecodeList decodes every list item into T, skipping items that do not fit.
// Non-list payloads decode to an empty slice.
func DecodeList[T any](p Payload) []T {
	out := make([]T, 0, len(p.Items))
	if p.Kind != KindList {
		return out
	}
	for _, item := range p.Items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DecodeObject decodes an object payload into T.
func DecodeObject[T any](p Payload) (T, bool) {
	var v T
	if p.Kind != KindObject {
		return v, false
	}
	if err := json.Unmarshal(p.Object, &v); err != nil {
		return v, false
	}
	return v, true
}

// PageMeta is the pagination block attached to upstream list responses.
type PageMeta struct {
	Page            int  `json:"page"`
	Take            int  `json:"take"`
	ItemCount       int  `json:"itemCount"`
	PageCount       int  `json:"pageCount"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Page decodes Meta as PageMeta. ok is false when no metadata was sent.
func (p Payload) Page() (PageMeta, bool) {
	var meta PageMeta
	if len(p.Meta) == 0 {
		return meta, false
	}
	if err := json.Unmarshal(p.Meta, &meta); err != nil {
		return meta, false
	}
	return meta, true
}

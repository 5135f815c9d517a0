// Package envelope unwraps the response envelopes used across the backend.
//
// A collection endpoint may answer with any of:
//
//	[ ... ]
//	{"data": [ ... ]}
//	{"data": {"data": [ ... ], "current_page": 1, ...}}
//	{"success": true, "data": [ ... ]}
//
// and singleton endpoints with the object itself or the object inside "data".
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bassista/go_microassur/internal/logger"
)

// Meta is the pagination information of a paginated envelope.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Page is a decoded collection plus its pagination meta, when the backend sent one.
type Page[T any] struct {
	Items []T   `json:"items"`
	Meta  *Meta `json:"meta,omitempty"`
}

var envelopeKeys = map[string]bool{
	"data":    true,
	"meta":    true,
	"links":   true,
	"message": true,
	"success": true,
}

// Collection decodes raw into a slice following the envelope precedence.
// When no known shape matches it returns an empty, non-nil slice.
func Collection[T any](raw json.RawMessage) ([]T, error) {
	items, _, err := collection[T](raw)
	return items, err
}

// Paginated decodes a collection and keeps the pagination meta.
func Paginated[T any](raw json.RawMessage) (Page[T], error) {
	items, meta, err := collection[T](raw)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Meta: meta}, nil
}

func collection[T any](raw json.RawMessage) ([]T, *Meta, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		logger.WithComponent("envelope").Warn("empty payload where a collection was expected")
		return []T{}, nil, nil
	}

	// 1. the payload is already the array
	if isArray(raw) {
		items, err := decodeArray[T](raw)
		return items, nil, err
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, nil, fmt.Errorf("decode envelope: %w", err)
	}

	data, hasData := outer["data"]
	data = bytes.TrimSpace(data)

	// 2. payload.data is the array (also covers 4. with success=true)
	if hasData && isArray(data) {
		items, err := decodeArray[T](data)
		return items, metaFrom(outer["meta"]), err
	}

	// 3. payload.data.data is the array (paginated envelope)
	if hasData && isObject(data) {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, nil, fmt.Errorf("decode paginated envelope: %w", err)
		}
		if nested := bytes.TrimSpace(inner["data"]); isArray(nested) {
			items, err := decodeArray[T](nested)
			meta := metaFrom(inner["meta"])
			if meta == nil {
				meta = metaFrom(data)
			}
			if meta == nil {
				meta = metaFrom(outer["meta"])
			}
			return items, meta, err
		}
	}

	logger.WithComponent("envelope").Warnf("unrecognised collection envelope, keys=%v", keysOf(outer))
	return []T{}, nil, nil
}

// Single decodes a singleton resource, descending through "data" envelopes.
func Single[T any](raw json.RawMessage) (T, error) {
	var zero T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return zero, fmt.Errorf("decode resource: empty payload")
	}

	// Bounded descent: {success, data:{data:{...}}} is the deepest shape seen.
	for depth := 0; depth < 3 && isObject(raw); depth++ {
		var outer map[string]json.RawMessage
		if err := json.Unmarshal(raw, &outer); err != nil {
			return zero, fmt.Errorf("decode envelope: %w", err)
		}
		data, ok := outer["data"]
		data = bytes.TrimSpace(data)
		if !ok || !isEnvelope(outer) || !(isObject(data) || isArray(data)) {
			break
		}
		raw = data
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode resource: %w", err)
	}
	return out, nil
}

// Succeeded reports whether an envelope omits "success" or sets it to true.
func Succeeded(raw json.RawMessage) bool {
	var status struct {
		Success *bool `json:"success"`
	}
	if !isObject(bytes.TrimSpace(raw)) {
		return true
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return true
	}
	return status.Success == nil || *status.Success
}

func isEnvelope(obj map[string]json.RawMessage) bool {
	if _, ok := obj["success"]; ok {
		return true
	}
	for k := range obj {
		if !envelopeKeys[k] {
			return false
		}
	}
	return true
}

func decodeArray[T any](raw json.RawMessage) ([]T, error) {
	items := []T{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return items, nil
}

func metaFrom(raw json.RawMessage) *Meta {
	if !isObject(bytes.TrimSpace(raw)) {
		return nil
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	if m == (Meta{}) {
		return nil
	}
	return &m
}

func isArray(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '{'
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

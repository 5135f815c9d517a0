package apperror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// payload is the part of a backend error body the normalizer understands:
//
//	{"error": {"code": "...", "context": {...}, "message": "..."}}
//	{"message": "...", "errors": {"field": ["..."]}}
type payload struct {
	Code        string
	Context     map[string]any
	Message     string
	FieldErrors []FieldError
}

// FieldError holds the messages of one input field, in body order.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

type rawBody struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Context map[string]any  `json:"context"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

type rawStructured struct {
	Code    string         `json:"code"`
	Context map[string]any `json:"context"`
	Message string         `json:"message"`
}

func parsePayload(body []byte) payload {
	var p payload
	if len(bytes.TrimSpace(body)) == 0 {
		return p
	}
	var raw rawBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return p
	}
	p.Code, p.Context, p.Message = raw.Code, raw.Context, raw.Message

	if len(raw.Error) > 0 {
		var s rawStructured
		var text string
		switch {
		case json.Unmarshal(raw.Error, &s) == nil:
			if s.Code != "" {
				p.Code, p.Context = s.Code, s.Context
			}
			if s.Message != "" {
				p.Message = s.Message
			}
		case json.Unmarshal(raw.Error, &text) == nil && p.Message == "":
			p.Message = text
		}
	}

	p.FieldErrors = parseFieldErrors(raw.Errors)
	p.Message = strings.TrimSpace(p.Message)
	return p
}

// parseFieldErrors walks the object token by token to keep key insertion order,
// which a map decode would lose.
func parseFieldErrors(raw json.RawMessage) []FieldError {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var out []FieldError
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		field, ok := tok.(string)
		if !ok {
			return out
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if msgs := fieldMessages(value); len(msgs) > 0 {
			out = append(out, FieldError{Field: field, Messages: msgs})
		}
	}
	return out
}

func fieldMessages(value json.RawMessage) []string {
	var list []any
	if err := json.Unmarshal(value, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, v := range list {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				msgs = append(msgs, s)
			}
		}
		return msgs
	}
	var one string
	if err := json.Unmarshal(value, &one); err == nil && strings.TrimSpace(one) != "" {
		return []string{strings.TrimSpace(one)}
	}
	return nil
}

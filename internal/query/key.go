package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies one read: the resource name followed by its selector parameters.
// Keys are compared structurally, so Key{"contracts", "bamboo", 1} built twice
// refers to the same cache entry.
type Key []any

// Resource is the first element of the key, used as the metrics label.
func (k Key) Resource() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return encodePart(k[0])
}

// HasPrefix reports whether every element of prefix equals the element at the same position in k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if encodePart(k[i]) != encodePart(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

func (k Key) parts() []string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = encodePart(p)
	}
	return parts
}

func (k Key) hash() string {
	return k.String()
}

func hasPrefixParts(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}

// encodePart renders one element canonically: numbers by value, maps with sorted keys.
func encodePart(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

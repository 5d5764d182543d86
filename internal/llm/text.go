package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text decodes a free-text completion field. Numbers and booleans keep their
// literal form, a list of strings is joined with "; ", and objects, null and
// placeholder values such as "n/a" leave it unset.
type Text struct {
	v *string
}

func (t *Text) UnmarshalJSON(data []byte) error {
	t.v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || data[0] == '{' {
		return nil
	}

	var s string
	switch {
	case data[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var part Text
			if err := part.UnmarshalJSON(item); err == nil && part.v != nil {
				parts = append(parts, *part.v)
			}
		}
		s = strings.Join(parts, "; ")
	case json.Unmarshal(data, &s) == nil:
	default:
		s = string(data)
	}

	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return nil
	}
	t.v = &s
	return nil
}

// Ptr returns nil when the field was absent or empty.
func (t Text) Ptr() *string {
	return t.v
}

func (t Text) String() string {
	if t.v == nil {
		return ""
	}
	return *t.v
}

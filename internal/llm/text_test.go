package llm_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
)

func TestTextDecoding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *string
	}{
		{name: "string", raw: `" spreading fast "`, want: ptr("spreading fast")},
		{name: "number", raw: `12`, want: ptr("12")},
		{name: "list", raw: `["rising cases", 3, null, ""]`, want: ptr("rising cases; 3")},
		{name: "nested list", raw: `[["a"], "b"]`, want: ptr("a; b")},
		{name: "empty list", raw: `[]`},
		{name: "object", raw: `{"reason":"x"}`},
		{name: "null", raw: `null`},
		{name: "placeholder", raw: `"N/A"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Field llm.Text `json:"field"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"field":`+tt.raw+`}`), &got))
			require.Equal(t, tt.want, got.Field.Ptr())
		})
	}
}

func ptr(s string) *string { return &s }

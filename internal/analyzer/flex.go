package analyzer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Models answer numbers as 1200, 1200.0, "1,200" or "about 1200".
// The flex types accept all of them and leave the value unset when nothing parses.

type flexInt struct {
	v *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	n, ok := parseNumber(data)
	if !ok {
		f.v = nil
		return nil
	}
	i := int(math.Round(n))
	f.v = &i
	return nil
}

type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	n, ok := parseNumber(data)
	if !ok {
		f.v = nil
		return nil
	}
	f.v = &n
	return nil
}

type flexBool struct {
	v *bool
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.v = &b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			b = true
			f.v = &b
		case "false", "no", "0":
			f.v = &b
		}
	}
	return nil
}

func parseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, false
	}
	return numberFromText(s)
}

func numberFromText(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	start := strings.IndexAny(s, "0123456789")
	if start == -1 {
		return 0, false
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	n, err := strconv.ParseFloat(strings.TrimRight(s[start:end], "."), 64)
	if err != nil {
		return 0, false
	}
	if start > 0 && s[start-1] == '-' {
		n = -n
	}
	return n, true
}

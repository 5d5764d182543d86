package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON means the completion carried no brace-delimited object.
var ErrNoJSON = errors.New("no json object in completion")

// ExtractJSON returns the text between the first '{' and the last '}'.
// Models often wrap the object in prose or code fences; everything outside is ignored.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// DecodeJSON extracts the object body from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	body, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode completion json: %w", err)
	}
	return nil
}

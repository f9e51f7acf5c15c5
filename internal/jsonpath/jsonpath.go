// Package jsonpath pulls a text field out of a JSON response using a small
// dotted path syntax such as "choices[0].message.content".
package jsonpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the path does not lead to a scalar value.
var ErrNotFound = errors.New("no text at path")

// Extract decodes body and returns the value at path. When path is empty or
// does not resolve, a top-level "text" field is used.
func Extract(body []byte, path string) (string, error) {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if path != "" {
		if v, ok := Lookup(root, path); ok {
			return v, nil
		}
	}
	if path != "text" {
		if v, ok := Lookup(root, "text"); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrNotFound, path)
}

// Lookup walks root along a dot-separated path and returns the scalar it
// ends on.
func Lookup(root interface{}, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := root
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := ParseSegment(part)
		if err != nil {
			return "", false
		}

		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			next, exists := m[key]
			if !exists {
				return "", false
			}
			cur = next
		}

		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return scalar(cur)
}

func scalar(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// ParseSegment splits a path segment like "foo[0][1]", "[0]" or "bar" into
// its key and indexes.
func ParseSegment(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty segment")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key := token[:br]
	rest := token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := rest[1:closePos]
		if numStr == "" {
			return "", nil, fmt.Errorf("empty index in %s", token)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}

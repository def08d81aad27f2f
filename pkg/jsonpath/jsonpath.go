// Package jsonpath extracts values from JSON documents with a small JSONPath
// subset ($.a.b, $.items[0].id, $['key']) evaluated by gjson.
package jsonpath

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Extracted is one named value pulled out of a document.
type Extracted struct {
	Name  string
	Path  string
	Value string
	Err   error
}

// Extract returns the value at path as text. Objects and arrays are returned
// as raw JSON, null as "null".
func Extract(doc []byte, path string) (string, error) {
	if len(doc) == 0 {
		return "", errors.New("empty JSON document")
	}
	if path == "" {
		return "", errors.New("empty JSONPath expression")
	}
	if !gjson.ValidBytes(doc) {
		return "", errors.New("invalid JSON document")
	}

	result := gjson.GetBytes(doc, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractAll evaluates every named path. Results are sorted by name; a failed
// path carries its error and the returned error summarizes all failures.
func ExtractAll(doc []byte, paths map[string]string) ([]Extracted, error) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Extracted, 0, len(names))
	var failed []string
	for _, name := range names {
		value, err := Extract(doc, paths[name])
		out = append(out, Extracted{Name: name, Path: paths[name], Value: value, Err: err})
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(failed) > 0 {
		return out, fmt.Errorf("extraction errors: %s", strings.Join(failed, "; "))
	}
	return out, nil
}

// toGjsonPath converts $.users[0].name to users.0.name.
func toGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	var b strings.Builder
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				b.WriteString(path[i:])
				return b.String()
			}
			inner := strings.Trim(path[i+1:i+end], `'"`)
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(escapeKey(inner))
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// escapeKey protects gjson metacharacters inside a bracketed key.
func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

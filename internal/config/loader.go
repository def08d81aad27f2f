package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the top-level endpoint catalog file.
type Catalog struct {
	Environments map[string]Environment     `json:"environments"`
	Requests     map[string]Request         `json:"requests"`
	Schemas      map[string]json.RawMessage `json:"schemas,omitempty"`
}

// Environment represents a target environment
type Environment struct {
	BaseURL string            `json:"baseUrl"`
	Headers []KeyValue        `json:"headers,omitempty"`
	Vars    map[string]string `json:"variables,omitempty"`
}

// KeyValue is an ordered header or query entry.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Request is a catalog request definition.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers []KeyValue        `json:"headers,omitempty"`
	Query   []KeyValue        `json:"query,omitempty"`
	Body    interface{}       `json:"body,omitempty"`
	Expect  Expect            `json:"expect,omitempty"`
	Extract map[string]string `json:"extract,omitempty"`
}

// Expect describes the outcome a request must produce.
type Expect struct {
	// Status defaults to 200 when zero.
	Status int `json:"status,omitempty"`
	// Empty means the response must carry no body.
	Empty bool `json:"empty,omitempty"`
	// Schema names an entry of Catalog.Schemas the body must satisfy.
	Schema string `json:"schema,omitempty"`
}

// LoadCatalog loads a catalog file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func LoadCatalog(path string) (*Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses a JSON catalog.
func ParseJSON(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return &catalog, nil
}

// ParseYAML parses a YAML catalog. The document is converted to JSON first
// so both formats share one set of field names.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	if doc == nil {
		return &Catalog{}, nil
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error converting YAML catalog: %w", err)
	}
	return ParseJSON(asJSON)
}

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Substitute replaces {{name}} placeholders in s with values from vars in a
// single pass. Substituted values are not expanded again; unknown names are
// left as they are.
func Substitute(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if value, ok := vars[m[2:len(m)-2]]; ok {
			return value
		}
		return m
	})
}

// SubstituteAll applies Substitute to every value, keeping order.
func SubstituteAll(items []KeyValue, vars map[string]string) []KeyValue {
	out := make([]KeyValue, len(items))
	for i, kv := range items {
		out[i] = KeyValue{Key: kv.Key, Value: Substitute(kv.Value, vars)}
	}
	return out
}

// SubstituteBody applies Substitute to every string leaf of a decoded JSON body.
func SubstituteBody(body interface{}, vars map[string]string) interface{} {
	switch v := body.(type) {
	case string:
		return Substitute(v, vars)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = SubstituteBody(val, vars)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = SubstituteBody(val, vars)
		}
		return out
	default:
		return v
	}
}

// MergeVars merges two variable sets, with the second taking precedence
func MergeVars(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range override {
		result[key] = value
	}
	return result
}

// ResolvedRequest is a catalog request with variables expanded against an environment.
type ResolvedRequest struct {
	Name    string
	BaseURL string
	Method  string
	URL     string
	Headers []KeyValue
	Query   []KeyValue
	Body    interface{}
	HasBody bool
	Expect  Expect
	Extract map[string]string
	Schema  json.RawMessage
}

// Resolve expands the named request for the named environment. extra
// variables override environment variables.
func (c *Catalog) Resolve(envName, requestName string, extra map[string]string) (*ResolvedRequest, error) {
	env, ok := c.Environments[envName]
	if !ok {
		return nil, fmt.Errorf("environment not found: %s", envName)
	}
	req, ok := c.Requests[requestName]
	if !ok {
		return nil, fmt.Errorf("request not found: %s", requestName)
	}

	vars := MergeVars(env.Vars, extra)
	resolved := &ResolvedRequest{
		Name:    requestName,
		BaseURL: Substitute(env.BaseURL, vars),
		Method:  req.Method,
		URL:     Substitute(req.URL, vars),
		Headers: append(SubstituteAll(env.Headers, vars), SubstituteAll(req.Headers, vars)...),
		Query:   SubstituteAll(req.Query, vars),
		Expect:  req.Expect,
		Extract: req.Extract,
	}
	if req.Body != nil {
		resolved.Body = SubstituteBody(req.Body, vars)
		resolved.HasBody = true
	}
	if req.Expect.Schema != "" {
		schema, ok := c.Schemas[req.Expect.Schema]
		if !ok {
			return nil, fmt.Errorf("schema not found: %s", req.Expect.Schema)
		}
		resolved.Schema = schema
	}
	return resolved, nil
}

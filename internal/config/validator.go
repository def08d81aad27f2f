package config

import (
	"fmt"
	"net/http"
	"sort"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/pkg/jsonschema"
)

// ValidationError represents a catalog validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateCatalog validates the whole catalog and returns every problem found,
// sorted by path.
func ValidateCatalog(catalog *Catalog) []ValidationError {
	var errors []ValidationError
	add := func(path, format string, args ...interface{}) {
		errors = append(errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(catalog.Environments) == 0 {
		add("environments", "at least one environment is required")
	}
	for name, env := range catalog.Environments {
		if env.BaseURL == "" {
			add(fmt.Sprintf("environments.%s.baseUrl", name), "baseUrl is required")
		}
		for i, h := range env.Headers {
			if h.Key == "" {
				add(fmt.Sprintf("environments.%s.headers[%d].key", name, i), "header key is required")
			}
		}
	}

	if len(catalog.Requests) == 0 {
		add("requests", "at least one request is required")
	}
	for name, req := range catalog.Requests {
		base := "requests." + name

		if _, err := rchttp.ParseMethod(req.Method); err != nil {
			add(base+".method", "invalid method: %s", req.Method)
		}

		for i, h := range req.Headers {
			if h.Key == "" {
				add(fmt.Sprintf("%s.headers[%d].key", base, i), "header key is required")
			}
		}
		for i, q := range req.Query {
			if q.Key == "" {
				add(fmt.Sprintf("%s.query[%d].key", base, i), "query key is required")
			}
		}

		if s := req.Expect.Status; s != 0 && (s < 100 || s > 599 || http.StatusText(s) == "") {
			add(base+".expect.status", "invalid status code: %d", s)
		}
		if req.Expect.Empty {
			if req.Expect.Schema != "" {
				add(base+".expect.schema", "schema cannot be combined with an empty response")
			}
			if len(req.Extract) > 0 {
				add(base+".extract", "nothing to extract from an empty response")
			}
		}
		if req.Expect.Schema != "" {
			if _, ok := catalog.Schemas[req.Expect.Schema]; !ok {
				add(base+".expect.schema", "schema not found: %s", req.Expect.Schema)
			}
		}

		for varName, path := range req.Extract {
			if path == "" {
				add(fmt.Sprintf("%s.extract.%s", base, varName), "extract path cannot be empty")
			}
		}
	}

	for name, raw := range catalog.Schemas {
		if _, err := jsonschema.Compile(name, raw); err != nil {
			add("schemas."+name, "%v", err)
		}
	}

	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Path < errors[j].Path })
	return errors
}

package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with colors off and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--no-color", "--env-file", ""))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// usersServer serves a tiny JSON API and counts hits.
func usersServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.Encode(map[string]interface{}{
			"id":    r.PathValue("id"),
			"name":  "Ada",
			"query": r.URL.RawQuery,
			"trace": r.Header.Get("X-Trace"),
		})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var in map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		in["id"] = 7
		in["contentType"] = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	})
	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("HEAD /health", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"id": `)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in        string
		key, val  string
		wantError bool
	}{
		{in: "Authorization: Bearer x", key: "Authorization", val: "Bearer x"},
		{in: "X-Empty:", key: "X-Empty", val: ""},
		{in: "X-Colon: a:b", key: "X-Colon", val: "a:b"},
		{in: "no-colon", wantError: true},
		{in: ": value", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, val, err := parseHeader(tt.in)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.val, val)
		})
	}
}

func TestParseQuery(t *testing.T) {
	key, val, err := parseQuery("q=a=b")
	require.NoError(t, err)
	assert.Equal(t, "q", key)
	assert.Equal(t, "a=b", val)

	key, _, err = parseQuery("=x")
	require.NoError(t, err)
	assert.Empty(t, key)

	_, _, err = parseQuery("flag")
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "http://example.com/x", normalizeURL("example.com/x"))
	assert.Equal(t, "https://example.com", normalizeURL("https://example.com"))
	assert.Equal(t, "http://localhost:8080", normalizeURL("http://localhost:8080"))
}

func TestReadBody(t *testing.T) {
	body, err := readBody(`{"a":1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b":2}`), 0644))
	body, err = readBody("@" + path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(body))

	_, err = readBody("@" + filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMethodCommands(t *testing.T) {
	var hits atomic.Int32
	server := usersServer(t, &hits)

	t.Run("get with ordered query and header", func(t *testing.T) {
		out, _, err := execute(t, "get", server.URL+"/users/1", "-q", "b=2", "-q", "a=1", "-H", "X-Trace: abc")
		require.NoError(t, err)
		assert.Contains(t, out, "REQUEST: GET "+server.URL+"/users/1?b=2&a=1")
		assert.Contains(t, out, "RESPONSE: 200 OK")
		assert.Contains(t, out, `"query": "b=2&a=1"`)
		assert.Contains(t, out, `"trace": "abc"`)
		assert.Contains(t, out, "✓ OK")
	})

	t.Run("post json body", func(t *testing.T) {
		out, _, err := execute(t, "post", server.URL+"/users", "-j", `{"name":"Ada"}`, "--status", "201")
		require.NoError(t, err)
		assert.Contains(t, out, "RESPONSE: 201 Created")
		assert.Contains(t, out, `"contentType": "application/json"`)
		assert.Contains(t, out, `"id": 7`)
	})

	t.Run("unexpected status", func(t *testing.T) {
		out, _, err := execute(t, "post", server.URL+"/users", "-j", `{"name":"Ada"}`)
		assert.ErrorIs(t, err, ErrFailed)
		assert.Contains(t, out, "✗ unexpectedStatusCode")
		assert.Contains(t, out, "201 Created")
	})

	t.Run("not found", func(t *testing.T) {
		out, _, err := execute(t, "get", server.URL+"/users/404")
		assert.ErrorIs(t, err, ErrFailed)
		assert.Contains(t, out, "unexpectedStatusCode 404 Not Found")
	})

	t.Run("delete expecting nothing", func(t *testing.T) {
		out, _, err := execute(t, "delete", server.URL+"/users/1", "--status", "204", "--empty")
		require.NoError(t, err)
		assert.Contains(t, out, "RESPONSE: 204 No Content")
		assert.Contains(t, out, "✓ OK")
	})

	t.Run("delete expecting data gets none", func(t *testing.T) {
		out, _, err := execute(t, "delete", server.URL+"/users/1", "--status", "204")
		assert.ErrorIs(t, err, ErrFailed)
		assert.Contains(t, out, "✗ noData")
	})

	t.Run("head defaults to empty", func(t *testing.T) {
		_, _, err := execute(t, "head", server.URL+"/health")
		require.NoError(t, err)
	})

	t.Run("truncated reply", func(t *testing.T) {
		out, _, err := execute(t, "get", server.URL+"/broken")
		assert.ErrorIs(t, err, ErrFailed)
		assert.Contains(t, out, "✗ decodingError")
		assert.Contains(t, out, "Raw body:")
	})

	t.Run("resty transport", func(t *testing.T) {
		out, _, err := execute(t, "get", server.URL+"/users/3", "--transport", "resty", "-v")
		require.NoError(t, err)
		assert.Contains(t, out, `"id": "3"`)
		assert.Contains(t, out, "Timing:")
	})
}

func TestMethodCommands_FailBeforeSending(t *testing.T) {
	var hits atomic.Int32
	server := usersServer(t, &hits)

	out, _, err := execute(t, "post", server.URL+"/users", "-j", `{"name":`)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "✗ invalidRequestPayload")

	out, _, err = execute(t, "get", server.URL+"/users/1", "-q", "=x")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "✗ invalidQueryParams")

	_, _, err = execute(t, "get", server.URL+"/users/1", "-H", "broken")
	assert.ErrorContains(t, err, "invalid header")

	assert.Zero(t, hits.Load())
}

func TestMethodCommands_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	out, _, err := execute(t, "get", addr+"/users/1")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "✗ transportError")
}

func TestRootSettingsErrors(t *testing.T) {
	_, _, err := execute(t, "get", "http://localhost/x", "--transport", "smoke-signals")
	assert.ErrorContains(t, err, "invalid transport")

	_, _, err = execute(t, "get", "http://localhost/x", "--log-format", "xml")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestRootDebugLogging(t *testing.T) {
	var hits atomic.Int32
	server := usersServer(t, &hits)

	_, stderr, err := execute(t, "get", server.URL+"/users/1", "--log-level", "debug", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"settings loaded"`)
	assert.Contains(t, stderr, `"transport":"std"`)
}

func TestMethodCommands_Insecure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"secure": true}`)
	}))
	defer server.Close()

	out, _, err := execute(t, "get", server.URL)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "✗ transportError")

	out, _, err = execute(t, "get", server.URL, "--insecure")
	require.NoError(t, err)
	assert.Contains(t, out, `"secure": true`)

	out, _, err = execute(t, "get", server.URL, "--transport", "resty")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "✗ transportError")

	out, _, err = execute(t, "get", server.URL, "--transport", "resty", "--insecure")
	require.NoError(t, err)
	assert.Contains(t, out, `"secure": true`)
}

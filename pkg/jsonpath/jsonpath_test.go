package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doc = []byte(`{
	"name": "John Doe",
	"age": 30,
	"address": {"city": "Anytown", "zip.code": "12345"},
	"phones": [
		{"type": "home", "number": "555-1234"},
		{"type": "work", "number": "555-5678"}
	],
	"active": true,
	"metadata": null
}`)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "Simple property", path: "$.name", want: "John Doe"},
		{name: "Number", path: "$.age", want: "30"},
		{name: "Nested property", path: "$.address.city", want: "Anytown"},
		{name: "Array element", path: "$.phones[1].number", want: "555-5678"},
		{name: "Bracket key with dot", path: "$.address['zip.code']", want: "12345"},
		{name: "Double-quoted bracket key", path: `$["name"]`, want: "John Doe"},
		{name: "Boolean", path: "$.active", want: "true"},
		{name: "Null", path: "$.metadata", want: "null"},
		{name: "Object as raw JSON", path: "$.phones[0]", want: `{"type": "home", "number": "555-1234"}`},
		{name: "Without $ prefix", path: "name", want: "John Doe"},
		{name: "Missing path", path: "$.nope", wantErr: true},
		{name: "Empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(doc, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_BadDocuments(t *testing.T) {
	_, err := Extract(nil, "$.a")
	assert.Error(t, err)

	_, err = Extract([]byte(`{"a":`), "$.a")
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestExtract_RootArray(t *testing.T) {
	got, err := Extract([]byte(`[{"id": 7}]`), "$[0].id")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	got, err = Extract([]byte(`[1,2]`), "$")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", got)
}

func TestExtractAll(t *testing.T) {
	got, err := ExtractAll(doc, map[string]string{
		"city":  "$.address.city",
		"age":   "$.age",
		"ghost": "$.ghost",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	require.Len(t, got, 3)
	assert.Equal(t, "age", got[0].Name)
	assert.Equal(t, "30", got[0].Value)
	assert.Equal(t, "city", got[1].Name)
	assert.Equal(t, "ghost", got[2].Name)
	assert.Error(t, got[2].Err)
}

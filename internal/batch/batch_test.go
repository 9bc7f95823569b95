package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `
name: nightly-sync
tasks:
  - name: users
    url: https://api.example.com/users
    extract: items.0.id
  - name: create-order
    method: post
    url: https://api.example.com/orders
    headers:
      Content-Type: application/json
    body: '{"sku": "A-1"}'
`

func TestParseBatch(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleBatch))
	require.NoError(t, err)

	assert.Equal(t, "nightly-sync", f.Name)
	require.Len(t, f.Tasks, 2)

	assert.Equal(t, "GET", f.Tasks[0].Method, "method defaults to GET")
	assert.Equal(t, "items.0.id", f.Tasks[0].Extract)
	assert.Equal(t, "POST", f.Tasks[1].Method, "method is upper-cased")
	assert.Equal(t, "application/json", f.Tasks[1].Headers["Content-Type"])
	assert.Equal(t, []string{"users", "create-order"}, f.Labels())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("tasks:\n  - name: a\n    url: https://x\n    bogus: 1\n"))
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		file File
		want string
	}{
		{"empty", File{}, "no tasks"},
		{"missing name", File{Tasks: []Spec{{URL: "https://x"}}}, "name is required"},
		{"duplicate name", File{Tasks: []Spec{
			{Name: "a", URL: "https://x"},
			{Name: "a", URL: "https://y"},
		}}, "duplicate name"},
		{"missing url", File{Tasks: []Spec{{Name: "a"}}}, "url is required"},
		{"bad scheme", File{Tasks: []Spec{{Name: "a", URL: "ftp://x"}}}, "http or https"},
		{"bad method", File{Tasks: []Spec{{Name: "a", URL: "https://x", Method: "FETCH"}}}, "unsupported method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.file.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestExtractValue(t *testing.T) {
	body := []byte(`{"user": {"id": 42, "name": "alice"}, "tags": ["a", "b"]}`)

	value, ok := ExtractValue(body, "user.id")
	require.True(t, ok)
	assert.Equal(t, "42", value)

	value, ok = ExtractValue(body, "tags.1")
	require.True(t, ok)
	assert.Equal(t, "b", value)

	_, ok = ExtractValue(body, "user.missing")
	assert.False(t, ok)
}

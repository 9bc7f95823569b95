// Package batch defines the task batch file format for the workmill CLI:
// a named list of HTTP tasks, each with an optional gjson path that picks
// the task's result value out of the response body.
package batch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Spec describes one HTTP task in a batch file.
type Spec struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`

	// Extract is a gjson path applied to the response body; when set, the
	// extracted value becomes the task's result. Default is the status line.
	Extract string `yaml:"extract"`
}

// File is the root of a batch file.
type File struct {
	Name  string `yaml:"name"`
	Tasks []Spec `yaml:"tasks"`
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Parse reads a YAML batch definition.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a batch file from disk.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Validate checks every task spec and normalizes methods to upper case.
func (f *File) Validate() error {
	if len(f.Tasks) == 0 {
		return fmt.Errorf("batch contains no tasks")
	}
	seen := make(map[string]struct{}, len(f.Tasks))
	for i := range f.Tasks {
		t := &f.Tasks[i]
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("task %d: name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("task %d: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}

		if strings.TrimSpace(t.URL) == "" {
			return fmt.Errorf("task %q: url is required", t.Name)
		}
		if !strings.HasPrefix(t.URL, "http://") && !strings.HasPrefix(t.URL, "https://") {
			return fmt.Errorf("task %q: url must be http or https", t.Name)
		}

		if t.Method == "" {
			t.Method = http.MethodGet
		}
		t.Method = strings.ToUpper(strings.TrimSpace(t.Method))
		if _, ok := allowedMethods[t.Method]; !ok {
			return fmt.Errorf("task %q: unsupported method %q", t.Name, t.Method)
		}
	}
	return nil
}

// Labels returns the task names in batch order.
func (f *File) Labels() []string {
	labels := make([]string, len(f.Tasks))
	for i, t := range f.Tasks {
		labels[i] = t.Name
	}
	return labels
}

// ExtractValue applies a gjson path to a response body. The boolean reports
// whether the path matched.
func ExtractValue(body []byte, path string) (string, bool) {
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

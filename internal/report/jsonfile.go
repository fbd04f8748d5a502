package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mergegate/mergegate/internal/models"
)

// JSONFileOptions configures the JSON result file sink.
type JSONFileOptions struct {
	Path string `mapstructure:"path"`
}

// JSONFileSink writes the verdict as indented JSON to a file.
type JSONFileSink struct {
	path string
}

// NewJSONFileSink validates options and returns the sink.
func NewJSONFileSink(opts JSONFileOptions) (*JSONFileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &JSONFileSink{path: opts.Path}, nil
}

func (s *JSONFileSink) Name() string { return "json" }

func (s *JSONFileSink) Publish(_ context.Context, v *models.FinalVerdict) error {
	data, err := MarshalVerdict(v)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing verdict file: %w", err)
	}
	return nil
}

// MarshalVerdict renders a verdict as indented JSON. Shared by the file,
// artifact, and blob sinks so all three persist the identical document.
func MarshalVerdict(v *models.FinalVerdict) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding verdict JSON: %w", err)
	}
	return buf.Bytes(), nil
}

package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/mergegate/mergegate/internal/models"
)

// ArtifactOptions configures the compressed artifact sink.
type ArtifactOptions struct {
	Path string `mapstructure:"path"`
	// Level is the gzip compression level; 0 means gzip.DefaultCompression.
	Level int `mapstructure:"level"`
}

// ArtifactSink writes the verdict, including every attempt's captured
// output, as a gzip-compressed JSON artifact suitable for CI upload.
type ArtifactSink struct {
	path  string
	level int
}

// NewArtifactSink validates options and returns the sink.
func NewArtifactSink(opts ArtifactOptions) (*ArtifactSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	level := opts.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", opts.Level)
	}
	return &ArtifactSink{path: opts.Path, level: level}, nil
}

func (s *ArtifactSink) Name() string { return "artifact" }

func (s *ArtifactSink) Publish(_ context.Context, v *models.FinalVerdict) error {
	data, err := MarshalVerdict(v)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating artifact file: %w", err)
	}

	zw, err := gzip.NewWriterLevel(f, s.level)
	if err != nil {
		f.Close()
		return fmt.Errorf("initializing gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing artifact: %w", err)
	}
	return f.Close()
}

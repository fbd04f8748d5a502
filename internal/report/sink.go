// Package report publishes a completed FinalVerdict to external consumers:
// result files, CI artifact stores, or a blob container. Publishing is
// best-effort; a sink failure never alters the verdict already computed.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mergegate/mergegate/internal/models"
	"github.com/mergegate/mergegate/internal/registry"
)

// Sink receives the verdict of one evaluation cycle.
type Sink interface {
	Name() string
	Publish(ctx context.Context, v *models.FinalVerdict) error
}

// MultiSink fans a verdict out to every configured sink. Failures are
// logged and skipped so one broken sink cannot suppress the others.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink wraps the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends a sink.
func (m *MultiSink) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Publish delivers the verdict to every sink, continuing past failures.
func (m *MultiSink) Publish(ctx context.Context, v *models.FinalVerdict) {
	for _, s := range m.sinks {
		if err := s.Publish(ctx, v); err != nil {
			slog.Warn("publishing verdict failed", "sink", s.Name(), "error", err)
		}
	}
}

// Build constructs sinks from suite configuration. Sink options are decoded
// from the generic config map into each sink's typed options.
func Build(cfgs []registry.SinkConfig) (*MultiSink, error) {
	multi := &MultiSink{}
	for i, cfg := range cfgs {
		sink, err := buildOne(cfg)
		if err != nil {
			return nil, fmt.Errorf("sink[%d] (%s): %w", i, cfg.Type, err)
		}
		multi.Add(sink)
	}
	return multi, nil
}

func buildOne(cfg registry.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "json":
		var opts JSONFileOptions
		if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
		return NewJSONFileSink(opts)
	case "junit":
		var opts JUnitOptions
		if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
		return NewJUnitSink(opts)
	case "artifact":
		var opts ArtifactOptions
		if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
		return NewArtifactSink(opts)
	case "azure-blob":
		var opts BlobOptions
		if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
		return NewBlobSink(opts)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftcast/driftcast/pkg/cube"
)

// StaticAdapter serves a reference series embedded in its configuration
// as a JSON document. It is useful for demos, tests, and air-gapped
// deployments where the observational record is shipped with the service.
type StaticAdapter struct {
	// Document is the JSON document holding the series (required).
	Document string

	// ValuePath and TimestampPath follow the HTTPAdapter conventions.
	ValuePath     string
	TimestampPath string

	// TimestampFormat follows the HTTPAdapter conventions.
	TimestampFormat string

	// Units tags the resulting cube's units attribute.
	Units string
}

func (s *StaticAdapter) Name() string { return "static" }

// Collect implements Adapter. The window is ignored: the embedded series
// is returned whole.
func (s *StaticAdapter) Collect(ctx context.Context, _ int) (*cube.Cube, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Document == "" {
		return nil, errors.New("static adapter: document is required")
	}
	h := &HTTPAdapter{
		ValuePath:       s.ValuePath,
		TimestampPath:   s.TimestampPath,
		TimestampFormat: s.TimestampFormat,
		Units:           s.Units,
	}
	series, err := h.extract([]byte(s.Document))
	if err != nil {
		return nil, fmt.Errorf("static adapter: %w", err)
	}
	return series, nil
}

// Package adapters provides Driftcast data source connectors that retrieve
// observational reference series from external systems and normalize them
// into a time-indexed cube.
//
// Each adapter implements the Adapter interface and can be plugged into
// the Driftcast verification loop. Available adapters include:
//   - HTTPAdapter   — generic adapter for any REST API with JSON responses
//   - StaticAdapter — serves a series embedded in its configuration
//
// Adapters are intentionally lightweight. They focus on pulling raw series,
// shaping them into one-dimensional time-indexed cubes, and leaving all
// normalization and skill computation to Driftcast's upper layers.
package adapters

import (
	"context"

	"github.com/driftcast/driftcast/pkg/cube"
)

// Adapter is the interface all Driftcast reference adapters implement.
//
// Adapters fetch a raw observational series from an external system and
// return it as a 1-D cube indexed by a calendar "time" axis, sorted
// ascending. The Collect call is synchronous and must respect context
// cancellation and deadlines.
type Adapter interface {
	// Collect fetches the reference series covering at most the last
	// windowYears years. It must handle transient errors gracefully and
	// never panic.
	Collect(ctx context.Context, windowYears int) (*cube.Cube, error)

	// Name returns a short, unique identifier for the adapter.
	// Example: "http", "static".
	Name() string
}

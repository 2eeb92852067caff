// Package survey provides access to point-sampled survey datasets: a flat
// array of 2-D coordinates with aligned per-point variables, organized into
// traversal lines. Line semantics (masks, queries, hulls, repair) live in
// internal/lines; this package only exposes the dataset contract and its
// storage backends.
package survey

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMissingVariable indicates a required dimension or variable is absent
	// from the source dataset.
	ErrMissingVariable = errors.New("required variable not found in dataset")

	// ErrLegacyIndexFormat indicates the source stores line membership in the
	// old range-indexing format, which has no per-point lookup.
	ErrLegacyIndexFormat = errors.New("line data is in range-indexing format (unsupported)")

	// ErrFlagsExist signals a creation conflict for the coordinate flag
	// arrays. Coordinate repair uses it to detect an already-repaired dataset.
	ErrFlagsExist = errors.New("coordinate flag arrays already exist")

	// ErrUnsupported indicates the operation is not available for this
	// backend (e.g. writes on a TileDB-backed dataset, or a TileDB dataset
	// in a binary built without "-tags tiledb").
	ErrUnsupported = errors.New("operation not supported by this dataset backend")
)

// CoordinateFlagNames is the lookup table persisted alongside the per-point
// coordinate_flag_index array.
var CoordinateFlagNames = []string{"Invalid", "Observed", "Interpolated", "Extrapolated"}

// Coordinate flag values, indices into CoordinateFlagNames.
const (
	FlagInvalid uint8 = iota
	FlagObserved
	FlagInterpolated
	FlagExtrapolated
)

// Bounds is an axis-aligned coordinate rectangle.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether the point lies inside the bounds. NaN ordinates
// never match.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Ring returns the bounds as a closed rectangular ring.
func (b Bounds) Ring() [][2]float64 {
	return [][2]float64{
		{b.MinX, b.MinY},
		{b.MaxX, b.MinY},
		{b.MaxX, b.MaxY},
		{b.MinX, b.MaxY},
		{b.MinX, b.MinY},
	}
}

// Dataset is the read contract over a point dataset. Implementations must
// return coordinate pairs with NaN in either ordinate meaning invalid.
type Dataset interface {
	// Identity uniquely names the underlying source; cache keys and side
	// files are derived from it.
	Identity() string

	PointCount() int

	// Coordinates returns all point coordinates, aligned with every other
	// per-point array.
	Coordinates() ([][2]float64, error)

	// SpatialMask returns a per-point membership mask for the bounds.
	SpatialMask(b Bounds) ([]bool, error)

	// Extent is the dataset's native bounding rectangle.
	Extent() Bounds

	// PointVariables lists the names of the per-point data variables,
	// excluding coordinates and line bookkeeping.
	PointVariables() []string

	// Variable fetches a whole per-point variable array.
	Variable(name string) ([]float64, error)

	// VariableAt fetches a variable at the given point positions, in order.
	VariableAt(name string, positions []int) ([]float64, error)

	// ReadLineNumbers reads the ordered distinct line identifiers from the
	// source. A scalar line variable is normalized to a single-element
	// slice. Returns ErrMissingVariable if the source has no line data.
	ReadLineNumbers() ([]int32, error)

	// ReadLineIndex reads the per-point line-ownership array from the
	// source. Returns ErrMissingVariable when the source has no per-point
	// lookup.
	ReadLineIndex() ([]int32, error)
}

// Mutable extends Dataset with the write operations coordinate repair needs.
type Mutable interface {
	Dataset

	// WriteCoordinates overwrites the coordinate pairs starting at point
	// index start.
	WriteCoordinates(start int, pts [][2]float64) error

	// CreateFlagArrays creates the coordinate_flag lookup table and the
	// per-point coordinate_flag_index array. Returns ErrFlagsExist if they
	// are already present; repair treats that as "nothing to do".
	CreateFlagArrays() error

	// WriteFlags overwrites flag values starting at point index start.
	WriteFlags(start int, flags []uint8) error

	// Flags returns the per-point coordinate flag array.
	Flags() ([]uint8, error)
}

// Memory is an in-memory Dataset, used in tests and as a building block for
// datasets assembled by callers.
type Memory struct {
	ID          string
	Coords      [][2]float64
	Vars        map[string][]float64
	VarOrder    []string
	LineNumbers []int32
	LineIdx     []int32

	// NoLineIndex simulates a source holding line data without a per-point
	// lookup (the legacy range-indexing format).
	NoLineIndex bool

	flags []uint8
}

var _ Mutable = (*Memory)(nil)

func (m *Memory) Identity() string {
	if m.ID == "" {
		return "memory"
	}
	return m.ID
}

func (m *Memory) PointCount() int { return len(m.Coords) }

func (m *Memory) Coordinates() ([][2]float64, error) { return m.Coords, nil }

func (m *Memory) SpatialMask(b Bounds) ([]bool, error) {
	mask := make([]bool, len(m.Coords))
	for i, c := range m.Coords {
		mask[i] = b.Contains(c[0], c[1])
	}
	return mask, nil
}

func (m *Memory) Extent() Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, c := range m.Coords {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			continue
		}
		b.MinX = math.Min(b.MinX, c[0])
		b.MaxX = math.Max(b.MaxX, c[0])
		b.MinY = math.Min(b.MinY, c[1])
		b.MaxY = math.Max(b.MaxY, c[1])
	}
	return b
}

func (m *Memory) PointVariables() []string {
	if len(m.VarOrder) > 0 {
		return m.VarOrder
	}
	names := make([]string, 0, len(m.Vars))
	for name := range m.Vars {
		names = append(names, name)
	}
	return names
}

func (m *Memory) Variable(name string) ([]float64, error) {
	vals, ok := m.Vars[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrMissingVariable)
	}
	return vals, nil
}

func (m *Memory) VariableAt(name string, positions []int) ([]float64, error) {
	vals, err := m.Variable(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(positions))
	for i, p := range positions {
		out[i] = vals[p]
	}
	return out, nil
}

func (m *Memory) ReadLineNumbers() ([]int32, error) {
	if len(m.LineNumbers) == 0 {
		return nil, fmt.Errorf("variable \"line\": %w", ErrMissingVariable)
	}
	return m.LineNumbers, nil
}

func (m *Memory) ReadLineIndex() ([]int32, error) {
	if m.NoLineIndex || m.LineIdx == nil {
		return nil, fmt.Errorf("variable \"line_index\": %w", ErrMissingVariable)
	}
	return m.LineIdx, nil
}

func (m *Memory) WriteCoordinates(start int, pts [][2]float64) error {
	if start < 0 || start+len(pts) > len(m.Coords) {
		return fmt.Errorf("coordinate write [%d,%d) out of range 0..%d", start, start+len(pts), len(m.Coords))
	}
	copy(m.Coords[start:], pts)
	return nil
}

func (m *Memory) CreateFlagArrays() error {
	if m.flags != nil {
		return ErrFlagsExist
	}
	m.flags = make([]uint8, len(m.Coords))
	return nil
}

func (m *Memory) WriteFlags(start int, flags []uint8) error {
	if m.flags == nil {
		return fmt.Errorf("variable \"coordinate_flag_index\": %w", ErrMissingVariable)
	}
	if start < 0 || start+len(flags) > len(m.flags) {
		return fmt.Errorf("flag write [%d,%d) out of range 0..%d", start, start+len(flags), len(m.flags))
	}
	copy(m.flags[start:], flags)
	return nil
}

func (m *Memory) Flags() ([]uint8, error) {
	if m.flags == nil {
		return nil, fmt.Errorf("variable \"coordinate_flag_index\": %w", ErrMissingVariable)
	}
	return m.flags, nil
}

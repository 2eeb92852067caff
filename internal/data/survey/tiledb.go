//go:build tiledb

package survey

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// TileDBDataset is a read-only Dataset whose arrays live in TileDB. The
// directory holds the same metadata.json as a chunked Store, with each
// registered array stored as a dense 1-D TileDB array named after the
// variable, dimension "point", attribute "value".
//
// Coordinate repair needs a writable backend; use a Store for that.
type TileDBDataset struct {
	dir  string
	meta *storeMeta
	ctx  *tiledb.Context

	mu     sync.Mutex
	coords [][2]float64
}

var _ Dataset = (*TileDBDataset)(nil)

// NewTileDBDataset opens a TileDB-backed dataset directory.
func NewTileDBDataset(dir string) (*TileDBDataset, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("tiledb dataset not found at %s: %w", dir, err)
	}
	var meta storeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse dataset metadata: %w", err)
	}

	ctx, err := tiledb.NewContext(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create TileDB context: %w", err)
	}

	return &TileDBDataset{dir: dir, meta: &meta, ctx: ctx}, nil
}

func (d *TileDBDataset) Supported() bool { return true }

func (d *TileDBDataset) Identity() string { return d.meta.Source }

func (d *TileDBDataset) PointCount() int { return d.meta.PointCount }

func (d *TileDBDataset) Extent() Bounds { return d.meta.Bounds }

func (d *TileDBDataset) PointVariables() []string { return d.meta.PointVars }

// readDense reads the full "value" attribute of a dense 1-D array into out,
// which must have capacity for the array's registered element count.
func (d *TileDBDataset) readDense(name string, out interface{}, count int) error {
	uri := filepath.Join(d.dir, name)
	arr, err := tiledb.NewArray(d.ctx, uri)
	if err != nil {
		return fmt.Errorf("failed to open array %s: %w", name, err)
	}
	defer arr.Free()
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		return fmt.Errorf("failed to open array %s for read: %w", name, err)
	}
	defer arr.Close()

	sub, err := arr.NewSubarray()
	if err != nil {
		return fmt.Errorf("failed to create subarray for %s: %w", name, err)
	}
	defer sub.Free()
	if err := sub.AddRangeByName("point", tiledb.MakeRange[int64](0, int64(count)-1)); err != nil {
		return fmt.Errorf("failed to set point range for %s: %w", name, err)
	}

	q, err := tiledb.NewQuery(d.ctx, arr)
	if err != nil {
		return fmt.Errorf("failed to create query for %s: %w", name, err)
	}
	defer q.Free()
	if err := q.SetSubarray(sub); err != nil {
		return fmt.Errorf("failed to set subarray for %s: %w", name, err)
	}
	if err := q.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return fmt.Errorf("failed to set layout for %s: %w", name, err)
	}
	if _, err := q.SetDataBuffer("value", out); err != nil {
		return fmt.Errorf("failed to set buffer for %s: %w", name, err)
	}

	if err := q.Submit(); err != nil {
		return fmt.Errorf("query submit failed for %s: %w", name, err)
	}
	status, err := q.Status()
	if err != nil {
		return fmt.Errorf("query status failed for %s: %w", name, err)
	}
	if status != tiledb.TILEDB_COMPLETED {
		return fmt.Errorf("unexpected query status for %s: %v", name, status)
	}
	return nil
}

func (d *TileDBDataset) arrayCount(name string) (int, error) {
	am, ok := d.meta.Arrays[name]
	if !ok {
		return 0, fmt.Errorf("variable %q: %w", name, ErrMissingVariable)
	}
	return am.Count, nil
}

func (d *TileDBDataset) readFloat64(name string) ([]float64, error) {
	count, err := d.arrayCount(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	if err := d.readDense(name, out, count); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *TileDBDataset) readInt32(name string) ([]int32, error) {
	count, err := d.arrayCount(name)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	if err := d.readDense(name, out, count); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *TileDBDataset) Coordinates() ([][2]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.coords != nil {
		return d.coords, nil
	}
	lon, err := d.readFloat64("longitude")
	if err != nil {
		return nil, err
	}
	lat, err := d.readFloat64("latitude")
	if err != nil {
		return nil, err
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("coordinate arrays are misaligned: %d longitudes vs %d latitudes", len(lon), len(lat))
	}
	coords := make([][2]float64, len(lon))
	for i := range lon {
		coords[i] = [2]float64{lon[i], lat[i]}
	}
	d.coords = coords
	return coords, nil
}

func (d *TileDBDataset) SpatialMask(b Bounds) ([]bool, error) {
	coords, err := d.Coordinates()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(coords))
	for i, c := range coords {
		mask[i] = b.Contains(c[0], c[1])
	}
	return mask, nil
}

func (d *TileDBDataset) Variable(name string) ([]float64, error) {
	return d.readFloat64(name)
}

func (d *TileDBDataset) VariableAt(name string, positions []int) ([]float64, error) {
	vals, err := d.readFloat64(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(vals) {
			return nil, fmt.Errorf("variable %s: position %d out of range 0..%d", name, p, len(vals))
		}
		out[i] = vals[p]
	}
	return out, nil
}

func (d *TileDBDataset) ReadLineNumbers() ([]int32, error) {
	return d.readInt32("line")
}

func (d *TileDBDataset) ReadLineIndex() ([]int32, error) {
	return d.readInt32("line_index")
}

func (d *TileDBDataset) Close() {}

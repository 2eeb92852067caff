//go:build !tiledb

package survey

import (
	"fmt"
	"os"
	"path/filepath"
)

// TileDBDataset is a stub when built without "-tags tiledb".
type TileDBDataset struct {
	dir string
}

// NewTileDBDataset creates a TileDB-backed dataset (stub). It still validates
// the path so config issues are caught early, but all reads return
// ErrUnsupported.
func NewTileDBDataset(dir string) (*TileDBDataset, error) {
	if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err != nil {
		return nil, fmt.Errorf("tiledb dataset not found at %s: %w", dir, err)
	}
	return &TileDBDataset{dir: dir}, nil
}

func (d *TileDBDataset) Supported() bool { return false }

func (d *TileDBDataset) Identity() string { return d.dir }

func (d *TileDBDataset) PointCount() int { return 0 }

func (d *TileDBDataset) Coordinates() ([][2]float64, error) { return nil, ErrUnsupported }

func (d *TileDBDataset) SpatialMask(b Bounds) ([]bool, error) { return nil, ErrUnsupported }

func (d *TileDBDataset) Extent() Bounds { return Bounds{} }

func (d *TileDBDataset) PointVariables() []string { return nil }

func (d *TileDBDataset) Variable(name string) ([]float64, error) { return nil, ErrUnsupported }

func (d *TileDBDataset) VariableAt(name string, positions []int) ([]float64, error) {
	return nil, ErrUnsupported
}

func (d *TileDBDataset) ReadLineNumbers() ([]int32, error) { return nil, ErrUnsupported }

func (d *TileDBDataset) ReadLineIndex() ([]int32, error) { return nil, ErrUnsupported }

func (d *TileDBDataset) Close() {}

package lines

import (
	"log"
	"math"
	"sort"
)

// SamplePoints returns a representative subset of valid coordinates: per
// line, roughly divisions evenly spaced points plus the line's last valid
// point. The result is deduplicated and ordered by point index. Lines with
// no valid coordinates are logged and skipped.
func (ls *LineSet) SamplePoints(divisions int) ([][2]float64, error) {
	if divisions < 1 {
		divisions = 1
	}

	line, err := ls.Lines()
	if err != nil {
		return nil, err
	}
	lineIndex, err := ls.LineIndex()
	if err != nil {
		return nil, err
	}
	coords, err := ls.coordinates()
	if err != nil {
		return nil, err
	}

	selected := make(map[int]bool)
	for li := range line {
		valid := make([]int, 0, 64)
		for p, owner := range lineIndex {
			if int(owner) != li {
				continue
			}
			if math.IsNaN(coords[p][0]) || math.IsNaN(coords[p][1]) {
				continue
			}
			valid = append(valid, p)
		}
		if len(valid) == 0 {
			log.Printf("line %d has no valid coordinates, skipping", line[li])
			continue
		}

		increment := len(valid) / divisions
		if increment < 1 {
			increment = 1
		}
		for i := 0; i < len(valid); i += increment {
			selected[valid[i]] = true
		}
		selected[valid[len(valid)-1]] = true
	}

	positions := make([]int, 0, len(selected))
	for p := range selected {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	pts := make([][2]float64, len(positions))
	for i, p := range positions {
		pts[i] = coords[p]
	}
	return pts, nil
}

// StartEndPoints returns the first and last valid coordinate of every line.
func (ls *LineSet) StartEndPoints() ([][2]float64, error) {
	return ls.SamplePoints(1)
}

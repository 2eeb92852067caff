package lines

import (
	"testing"
)

func TestSamplePointsCoversEveryLine(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	pts, err := ls.SamplePoints(2)
	if err != nil {
		t.Fatalf("SamplePoints: %v", err)
	}

	// With increment 1 line 5 contributes all three of its points and
	// line 9 both of its points.
	if len(pts) != 5 {
		t.Fatalf("expected 5 sample points, got %d: %v", len(pts), pts)
	}
}

func TestSamplePointsSkipsInvalidCoordinates(t *testing.T) {
	ds := twoLineDataset()
	ds.Coords[1] = [2]float64{nan(), nan()}
	ls := New(ds, Options{})

	pts, err := ls.SamplePoints(10)
	if err != nil {
		t.Fatalf("SamplePoints: %v", err)
	}
	for _, p := range pts {
		if p[0] != p[0] || p[1] != p[1] {
			t.Fatalf("NaN coordinate in sample points: %v", pts)
		}
	}
}

func TestStartEndPoints(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	pts, err := ls.StartEndPoints()
	if err != nil {
		t.Fatalf("StartEndPoints: %v", err)
	}

	// First and last point of each line.
	want := [][2]float64{{0, 0}, {2, 0}, {10, 10}, {11, 10}}
	if len(pts) != len(want) {
		t.Fatalf("expected %d points, got %d: %v", len(want), len(pts), pts)
	}
	for i, p := range want {
		if pts[i] != p {
			t.Fatalf("point %d = %v, want %v", i, pts[i], p)
		}
	}
}

package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

func TestRenderLinesProducesPNG(t *testing.T) {
	r := NewQuicklookRenderer(Config{ImageSize: 128})

	paths := []LinePath{
		{Line: 5, Points: [][2]float64{{0, 0}, {1, 0}, {2, 0}}},
		{Line: 9, Points: [][2]float64{{0, 1}, {2, 1}}},
	}
	extent := survey.Bounds{MinX: 0, MinY: 0, MaxX: 2, MaxY: 1}

	data, err := r.RenderLines(paths, extent)
	if err != nil {
		t.Fatalf("RenderLines: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
		t.Fatalf("unexpected image size: %v", img.Bounds())
	}
}

func TestRenderLinesDegenerateExtent(t *testing.T) {
	r := NewQuicklookRenderer(Config{ImageSize: 64})

	// A single-point extent has no drawable area; the renderer still
	// returns a valid blank image.
	data, err := r.RenderLines(nil, survey.Bounds{MinX: 1, MinY: 1, MaxX: 1, MaxY: 1})
	if err != nil {
		t.Fatalf("RenderLines: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("blank image not decodable: %v", err)
	}
}

func TestRenderHullProducesPNG(t *testing.T) {
	r := NewQuicklookRenderer(Config{ImageSize: 64})

	ring := [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}
	data, err := r.RenderHull([][][2]float64{ring}, survey.Bounds{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4})
	if err != nil {
		t.Fatalf("RenderHull: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
}

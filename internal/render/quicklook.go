// Package render produces quicklook PNG images of survey line geometry
// using fogleman/gg.
package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
	"github.com/mcgarnagle38/geophys-utils/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	ImageSize int
}

// QuicklookRenderer draws datasets as one colored polyline per line.
type QuicklookRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewQuicklookRenderer creates a new quicklook renderer.
func NewQuicklookRenderer(cfg Config) *QuicklookRenderer {
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = 1024
	}
	return &QuicklookRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
	}
}

// LinePath is one line's drawable coordinates, invalid points already
// removed.
type LinePath struct {
	Line   int32
	Points [][2]float64
}

// RenderLines draws the line paths into a PNG, scaled to fit the extent
// with a small margin. Each line gets a distinct categorical color.
func (r *QuicklookRenderer) RenderLines(paths []LinePath, extent survey.Bounds) ([]byte, error) {
	size := float64(r.config.ImageSize)
	dc := gg.NewContext(r.config.ImageSize, r.config.ImageSize)

	dc.SetColor(color.White)
	dc.Clear()

	width := extent.MaxX - extent.MinX
	height := extent.MaxY - extent.MinY
	if width <= 0 || height <= 0 || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return r.encodeContext(dc)
	}

	// Uniform scale preserving aspect ratio, with a 5% margin.
	margin := size * 0.05
	scale := math.Min((size-2*margin)/width, (size-2*margin)/height)

	toPixel := func(p [2]float64) (float64, float64) {
		px := margin + (p[0]-extent.MinX)*scale
		// Flip Y so north is up.
		py := size - margin - (p[1]-extent.MinY)*scale
		return px, py
	}

	dc.SetLineWidth(1.5)
	for i, path := range paths {
		if len(path.Points) < 2 {
			continue
		}
		dc.SetColor(colormap.Categorical.AtIndex(i))

		px, py := toPixel(path.Points[0])
		dc.MoveTo(px, py)
		for _, p := range path.Points[1:] {
			px, py = toPixel(p)
			dc.LineTo(px, py)
		}
		dc.Stroke()
	}

	return r.encodeContext(dc)
}

// RenderHull draws a hull outline over the extent, one ring at a time.
func (r *QuicklookRenderer) RenderHull(rings [][][2]float64, extent survey.Bounds) ([]byte, error) {
	size := float64(r.config.ImageSize)
	dc := gg.NewContext(r.config.ImageSize, r.config.ImageSize)

	dc.SetColor(color.White)
	dc.Clear()

	width := extent.MaxX - extent.MinX
	height := extent.MaxY - extent.MinY
	if width <= 0 || height <= 0 {
		return r.encodeContext(dc)
	}

	margin := size * 0.05
	scale := math.Min((size-2*margin)/width, (size-2*margin)/height)

	dc.SetLineWidth(2)
	dc.SetColor(colormap.Viridis.At(0.5))
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		for i, p := range ring {
			px := margin + (p[0]-extent.MinX)*scale
			py := size - margin - (p[1]-extent.MinY)*scale
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
		dc.ClosePath()
		dc.Stroke()
	}

	return r.encodeContext(dc)
}

func (r *QuicklookRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

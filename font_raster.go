// font_raster.go - monospace face loading and per-codepoint coverage
//
// golang.org/x/image/font/sfnt parses the face,
// golang.org/x/image/vector rasterises individual glyphs to 8-bit
// coverage bitmaps on demand.

package main

import (
	"image"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// CellMetrics are the three positive integers fixed for the process
// once the font is loaded: advance width, line height, ascender.
type CellMetrics struct {
	CW, CH, Asc int
}

// Glyph is an 8-bit coverage bitmap with its own pitch, plus the
// bearings the compositor needs to position it within a cell.
type Glyph struct {
	Pix           []byte // coverage, row-major, Pitch bytes per row
	Width, Height int
	Pitch         int
	BearingLeft   int
	BearingTop    int
	AdvancePx     int
}

// FontRaster owns a loaded monospace face and reports uniform cell
// metrics; it has no glyph cache — correctness does not depend on one,
// per the contract.
type FontRaster struct {
	face    *sfnt.Font
	buf     *sfnt.Buffer
	ppem    fixed.Int26_6
	metrics CellMetrics
}

// LoadFontRaster tries fontCandidatePaths in order and loads the first
// readable one at fontPixelSize, rejecting fonts whose 'M' metrics are
// non-positive.
func LoadFontRaster() (*FontRaster, error) {
	var lastErr error
	for _, path := range fontCandidatePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		face, err := sfnt.Parse(data)
		if err != nil {
			lastErr = err
			continue
		}
		fr := &FontRaster{face: face, buf: &sfnt.Buffer{}, ppem: fixed.I(fontPixelSize)}
		if err := fr.probeMetrics(); err != nil {
			lastErr = err
			continue
		}
		return fr, nil
	}
	return nil, fatalf("font load", "no readable monospace font in candidate list", lastErr)
}

func (fr *FontRaster) probeMetrics() error {
	idx, err := fr.face.GlyphIndex(fr.buf, 'M')
	if err != nil {
		return err
	}
	if idx == 0 {
		return &EngineError{Operation: "font probe", Details: "face has no 'M' glyph"}
	}
	advance, err := fr.face.GlyphAdvance(fr.buf, idx, fr.ppem, font.HintingNone)
	if err != nil {
		return err
	}
	metrics, err := fr.face.Metrics(fr.buf, fr.ppem, font.HintingNone)
	if err != nil {
		return err
	}
	cw := advance.Round()
	ch := metrics.Height.Round()
	asc := metrics.Ascent.Round()
	if cw <= 0 || ch <= 0 || asc <= 0 {
		return &EngineError{Operation: "font probe", Details: "non-positive cell metrics"}
	}
	fr.metrics = CellMetrics{CW: cw, CH: ch, Asc: asc}
	return nil
}

// Metrics returns the fixed cell metrics computed at load time.
func (fr *FontRaster) Metrics() CellMetrics { return fr.metrics }

// Rasterize renders a codepoint's coverage bitmap on demand. A glyph
// absent from the face yields an empty (fully transparent) bitmap
// rather than an error, so callers can still advance the cursor.
func (fr *FontRaster) Rasterize(ch rune) (*Glyph, error) {
	idx, err := fr.face.GlyphIndex(fr.buf, ch)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return &Glyph{AdvancePx: fr.metrics.CW}, nil
	}

	segs, err := fr.face.LoadGlyph(fr.buf, idx, fr.ppem, nil)
	if err != nil {
		return nil, err
	}

	advance, _ := fr.face.GlyphAdvance(fr.buf, idx, fr.ppem, font.HintingNone)
	bounds, _, _ := fr.face.GlyphBounds(fr.buf, idx, fr.ppem, font.HintingNone)

	width := (bounds.Max.X - bounds.Min.X).Ceil()
	height := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if width <= 0 || height <= 0 {
		return &Glyph{AdvancePx: advance.Round()}, nil
	}

	rast := vector.NewRasterizer(width, height)
	originX := -bounds.Min.X.Floor()
	originY := -bounds.Min.Y.Floor()
	translateSegments(segs, rast, originX, originY)

	alpha := image.NewAlpha(image.Rect(0, 0, width, height))
	rast.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})

	return &Glyph{
		Pix:         alpha.Pix,
		Width:       width,
		Height:      height,
		Pitch:       alpha.Stride,
		BearingLeft: bounds.Min.X.Floor(),
		BearingTop:  -bounds.Min.Y.Floor(),
		AdvancePx:   advance.Round(),
	}, nil
}

// translateSegments replays sfnt.Segments into the rasterizer, shifting
// by (dx, dy) pixels so the glyph's top-left sits at the origin.
func translateSegments(segs []sfnt.Segment, rast *vector.Rasterizer, dx, dy int) {
	shift := fixed.P(dx, dy)
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			x, y := toF32(addPoint(seg.Args[0], shift))
			rast.MoveTo(x, y)
		case sfnt.SegmentOpLineTo:
			x, y := toF32(addPoint(seg.Args[0], shift))
			rast.LineTo(x, y)
		case sfnt.SegmentOpQuadTo:
			cx, cy := toF32(addPoint(seg.Args[0], shift))
			px, py := toF32(addPoint(seg.Args[1], shift))
			rast.QuadTo(cx, cy, px, py)
		case sfnt.SegmentOpCubeTo:
			c0x, c0y := toF32(addPoint(seg.Args[0], shift))
			c1x, c1y := toF32(addPoint(seg.Args[1], shift))
			px, py := toF32(addPoint(seg.Args[2], shift))
			rast.CubeTo(c0x, c0y, c1x, c1y, px, py)
		}
	}
}

func addPoint(p, shift fixed.Point26_6) fixed.Point26_6 {
	return fixed.Point26_6{X: p.X + shift.X, Y: p.Y + shift.Y}
}

func toF32(p fixed.Point26_6) (x, y float32) {
	return float32(p.X) / 64, float32(p.Y) / 64
}


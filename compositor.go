// compositor.go - two-pass cell rasterisation with shadow-buffer swap
//
// All backgrounds are painted before any foreground: glyph bearings
// can overhang into a neighbour cell, and painting that neighbour's
// background afterwards would erase the overhanging pixels.

package main

import (
	"strconv"

	"github.com/hinshun/vt10x"
)

// Compositor owns the shadow buffer and renders the active tab's
// pane grids into it, then commits to the display surface.
type Compositor struct {
	display DisplaySurface
	font    *FontRaster
	metrics CellMetrics
}

func NewCompositor(display DisplaySurface, font *FontRaster) *Compositor {
	return &Compositor{display: display, font: font, metrics: font.Metrics()}
}

// Render runs the full pipeline for the active tab: background pass,
// foreground pass, splitter, tab bar, then swap.
func (c *Compositor) Render(ctx *AppContext) error {
	cfg := c.display.Config()
	shadow := c.display.Shadow()

	tab := ctx.ActiveTab()
	if tab == nil {
		return nil
	}

	cursorCol, cursorRow := tab.ActivePane().CursorPosition()

	for _, pane := range tab.Panes() {
		c.renderBackgrounds(shadow, cfg, pane, pane == tab.ActivePane(), cursorCol, cursorRow)
	}
	for _, pane := range tab.Panes() {
		if err := c.renderForegrounds(shadow, cfg, pane, pane == tab.ActivePane(), cursorCol, cursorRow); err != nil {
			return err
		}
	}

	if tab.numPanes == 2 {
		c.paintSplitter(shadow, cfg, tab.panes[1].startColPx)
	}

	c.paintTabBar(shadow, cfg, ctx)

	return c.display.Commit()
}

// resolveCellColors returns the displayed foreground and background for
// a cell. vt10x swaps FG and BG for reversed cells in setChar while
// keeping attrReverse in Mode, so the swap is undone first; the default
// markers then resolve against the right role before the reverse
// attribute swaps the displayed pair.
func resolveCellColors(g vt10x.Glyph) (fg, bg RGB) {
	if g.Mode&attrReverse != 0 {
		g.FG, g.BG = g.BG, g.FG
	}
	fg = colorToRGB(g.FG, defaultFG)
	bg = colorToRGB(g.BG, defaultBG)
	if g.Mode&attrReverse != 0 {
		fg, bg = bg, fg
	}
	return fg, bg
}

func cellBackground(g vt10x.Glyph) RGB {
	_, bg := resolveCellColors(g)
	return bg
}

func cellForeground(g vt10x.Glyph) RGB {
	fg, _ := resolveCellColors(g)
	return fg
}

// colorToRGB resolves a vt10x.Color, falling back to def for the
// terminal's own default-colour marker. Only the default marker and
// the 16-colour ANSI set are resolved; anything outside that range
// falls back to def rather than guessing a palette entry.
func colorToRGB(c vt10x.Color, def RGB) RGB {
	if c < vt10x.Color(len(ansi16)) {
		return ansi16[c]
	}
	return def
}

const (
	attrReverse   = 1 << 0
	attrUnderline = 1 << 1
	attrBold      = 1 << 2
	attrItalic    = 1 << 4
	attrBlink     = 1 << 5
)

var ansi16 = [16]RGB{
	{0, 0, 0}, {0xcd, 0, 0}, {0, 0xcd, 0}, {0xcd, 0xcd, 0},
	{0, 0, 0xee}, {0xcd, 0, 0xcd}, {0, 0xcd, 0xcd}, {0xe5, 0xe5, 0xe5},
	{0x7f, 0x7f, 0x7f}, {0xff, 0, 0}, {0, 0xff, 0}, {0xff, 0xff, 0},
	{0x5c, 0x5c, 0xff}, {0xff, 0, 0xff}, {0, 0xff, 0xff}, {0xff, 0xff, 0xff},
}

// renderBackgrounds fills a cell.width x 1 rectangle for every cell
// with its resolved background colour, overriding with the cursor
// colour at the active pane's cursor cell. Blank cells still get their
// background (a cleared region carries the terminal's colours); only
// wide-glyph continuation columns are skipped, since the lead column's
// rect already covers them.
func (c *Compositor) renderBackgrounds(shadow []byte, cfg DisplayConfig, pane *Pane, isActivePane bool, cursorCol, cursorRow int) {
	for row := 0; row < pane.rows; row++ {
		wideTail := false
		for col := 0; col < pane.cols; col++ {
			glyph := pane.Cell(col, row)
			kind := classifyCell(glyph.Char, wideTail)
			wideTail = kind == CellWide
			if kind == CellWideContinuation {
				continue
			}
			width := 1
			if kind == CellWide {
				width = 2
			}
			bg := cellBackground(glyph)
			if isActivePane && col == cursorCol && row == cursorRow {
				bg = cursorBG
			}
			c.fillCellRect(shadow, cfg, pane.startColPx+col*c.metrics.CW, row*c.metrics.CH, width*c.metrics.CW, c.metrics.CH, bg)
		}
	}
}

// renderForegrounds skips blank and continuation cells, resolves fg/bg
// (overriding both at the cursor cell), loads the glyph, centres it,
// and blits it.
func (c *Compositor) renderForegrounds(shadow []byte, cfg DisplayConfig, pane *Pane, isActivePane bool, cursorCol, cursorRow int) error {
	for row := 0; row < pane.rows; row++ {
		wideTail := false
		for col := 0; col < pane.cols; col++ {
			glyph := pane.Cell(col, row)
			kind := classifyCell(glyph.Char, wideTail)
			wideTail = kind == CellWide
			if kind == CellBlank || kind == CellWideContinuation {
				continue
			}
			width := 1
			if kind == CellWide {
				width = 2
			}

			fg := cellForeground(glyph)
			isCursor := isActivePane && col == cursorCol && row == cursorRow
			bg := cellBackground(glyph)
			if isCursor {
				fg = cursorFG
				bg = cursorBG
			}

			g, err := c.font.Rasterize(glyph.Char)
			if err != nil {
				continue
			}
			if g.Pix == nil {
				continue
			}

			xOffset := (width*c.metrics.CW - g.AdvancePx) / 2
			if xOffset < 0 {
				xOffset = 0
			}
			x := pane.startColPx + col*c.metrics.CW + xOffset + g.BearingLeft
			y := row*c.metrics.CH + c.metrics.Asc - g.BearingTop
			c.blitGlyph(shadow, cfg, x, y, g, fg, bg)
		}
	}
	return nil
}

// fillCellRect writes a solid rectangle, clipping against the
// destination surface so a rect that runs past the right edge or
// bottom of the framebuffer only touches bytes actually in shadow.
func (c *Compositor) fillCellRect(shadow []byte, cfg DisplayConfig, x, y, w, h int, color RGB) {
	packed := color.Packed()
	for row := 0; row < h; row++ {
		dstY := y + row
		if dstY < 0 || dstY >= cfg.Height {
			continue
		}
		off := dstY*cfg.Stride + x*4
		for col := 0; col < w; col++ {
			dstX := x + col
			if dstX < 0 || dstX >= cfg.Width {
				continue
			}
			writePixelLE(shadow, off+col*4, packed)
		}
	}
}

// blitGlyph blends an 8-bit coverage bitmap into the shadow buffer at
// (x, y), per the round((fg*a + bg*(255-a))/255) rule. Fully
// transparent pixels must not touch the destination, and a glyph
// extending past the destination's edges must not touch it either —
// a descender on the last content row or a glyph wider than its cell
// advance near the last column would otherwise write outside shadow.
func (c *Compositor) blitGlyph(shadow []byte, cfg DisplayConfig, x, y int, g *Glyph, fg, bg RGB) {
	for gy := 0; gy < g.Height; gy++ {
		dstY := y + gy
		if dstY < 0 || dstY >= cfg.Height {
			continue
		}
		rowOff := gy * g.Pitch
		dstRowOff := dstY * cfg.Stride
		for gx := 0; gx < g.Width; gx++ {
			a := g.Pix[rowOff+gx]
			if a == 0 {
				continue
			}
			dstX := x + gx
			if dstX < 0 || dstX >= cfg.Width {
				continue
			}
			blended := blendRGB(fg, bg, a)
			writePixelLE(shadow, dstRowOff+dstX*4, blended.Packed())
		}
	}
}

func (c *Compositor) paintSplitter(shadow []byte, cfg DisplayConfig, splitX int) {
	lineX := splitX - 1
	if lineX < 0 || lineX >= cfg.Width {
		return
	}
	contentHeight := cfg.Height - c.metrics.CH
	packed := tabBarFG.Packed()
	for y := 0; y < contentHeight; y++ {
		writePixelLE(shadow, y*cfg.Stride+lineX*4, packed)
	}
}

func (c *Compositor) paintTabBar(shadow []byte, cfg DisplayConfig, ctx *AppContext) {
	barY := cfg.Height - c.metrics.CH
	c.fillCellRect(shadow, cfg, 0, barY, cfg.Width, c.metrics.CH, tabBarBG)

	penX := c.metrics.CW / 2
	for i := 0; i < ctx.NumTabs(); i++ {
		label := " " + strconv.Itoa(i+1) + " "
		bg := tabBarBG
		fg := tabBarFG
		if i == ctx.ActiveTabIndex() {
			bg = tabBarActiveBG
			fg = cursorFG
		}
		penX = c.drawLabel(shadow, cfg, penX, barY, label, fg, bg)
		penX += c.metrics.CW / 2
	}
}

func (c *Compositor) drawLabel(shadow []byte, cfg DisplayConfig, penX, baseY int, label string, fg, bg RGB) int {
	for _, ch := range label {
		c.fillCellRect(shadow, cfg, penX, baseY, c.metrics.CW, c.metrics.CH, bg)
		g, err := c.font.Rasterize(ch)
		if err == nil && g.Pix != nil {
			x := penX + g.BearingLeft
			y := baseY + c.metrics.Asc - g.BearingTop
			c.blitGlyph(shadow, cfg, x, y, g, fg, bg)
		}
		penX += c.metrics.CW
	}
	return penX
}


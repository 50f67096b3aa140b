// tab.go - one horizontal layout of one or two panes

package main

// Tab holds up to two panes laid out horizontally, the active pane
// index, and the shared row count.
type Tab struct {
	state tabState

	panes    [MaxPanesPerTab]*Pane
	numPanes int
	active   int
	termRows int
	cw, ch   int
	isActive bool
}

// NewTab creates a single-pane tab covering the full display width.
// total_cols = width_px / cw; rows = height_px / ch - 1. Either
// dimension below 1 is rejected. cw/ch are also the font raster's cell
// metrics every pane in this tab needs to report pixel-exact window
// sizes to the kernel.
func NewTab(widthPx, heightPx, cw, ch int) (*Tab, error) {
	totalCols := widthPx / cw
	rows := heightPx/ch - 1
	if totalCols < 1 || rows < 1 {
		return nil, fatalf("tab create", "display too small for one column/row", nil)
	}

	pane, err := NewPane(totalCols, rows, cw, ch, 0)
	if err != nil {
		return nil, err
	}

	return &Tab{
		state:    tabSingle,
		panes:    [MaxPanesPerTab]*Pane{pane},
		numPanes: 1,
		active:   0,
		termRows: rows,
		cw:       cw,
		ch:       ch,
		isActive: true,
	}, nil
}

// SplitVertical is permitted only on a single-pane tab. It shrinks the
// existing pane to the left half and spawns a new pane in the right
// half, making the new pane active. On failure to spawn the second
// pane, the first pane's column count is restored atomically.
func (t *Tab) SplitVertical() error {
	if t.state != tabSingle {
		return &EngineError{Operation: "split", Details: "tab is not single-pane"}
	}

	left := t.panes[0]
	oldCols := left.cols
	leftCols := oldCols / 2
	rightCols := oldCols - leftCols
	if leftCols < 2 || rightCols < 2 {
		return &EngineError{Operation: "split", Details: "split would leave a side with fewer than 2 columns"}
	}

	if err := left.Resize(leftCols, t.termRows); err != nil {
		return err
	}

	right, err := NewPane(rightCols, t.termRows, t.cw, t.ch, leftCols*t.cw)
	if err != nil {
		_ = left.Resize(oldCols, t.termRows)
		return err
	}

	t.panes[1] = right
	t.numPanes = 2
	t.active = 1
	t.state = tabSplit
	return nil
}

// FocusLeft / FocusRight switch the active pane index; meaningful only
// when the tab has two panes.
func (t *Tab) FocusLeft() {
	if t.numPanes == 2 {
		t.active = 0
	}
}

func (t *Tab) FocusRight() {
	if t.numPanes == 2 {
		t.active = 1
	}
}

// ActivePane returns the currently focused pane.
func (t *Tab) ActivePane() *Pane { return t.panes[t.active] }

// Panes returns the live panes in this tab (one or two).
func (t *Tab) Panes() []*Pane { return t.panes[:t.numPanes] }

// HandlePaneExit marks a dead pane's slot and returns true if the tab
// should be considered inactive (every pane has exited). A dying right
// pane does not restore the left pane's column count: the layout stays
// stable and the tab continues as a single pane occupying half the
// screen.
func (t *Tab) HandlePaneExit(idx int) (tabNowInactive bool) {
	if idx < 0 || idx >= t.numPanes {
		return false
	}
	t.panes[idx].Close()

	allDead := true
	for i := 0; i < t.numPanes; i++ {
		if t.panes[i].IsAlive() {
			allDead = false
			break
		}
	}
	if allDead {
		t.isActive = false
		t.state = tabClosing
		return true
	}
	// Compact the surviving pane into slot 0. Its column count and
	// pixel origin are left as they were, so a survivor of a split
	// keeps its half of the screen.
	if t.numPanes == 2 {
		if idx == 0 {
			t.panes[0] = t.panes[1]
		}
		t.panes[1] = nil
		t.numPanes = 1
		t.active = 0
		t.state = tabSingle
	}
	return false
}

// Close tears down every pane in the tab.
func (t *Tab) Close() {
	for i := 0; i < t.numPanes; i++ {
		if t.panes[i] != nil {
			t.panes[i].Close()
		}
	}
}

package main

import "testing"

func TestNewTab_RejectsDisplayTooSmall(t *testing.T) {
	if _, err := NewTab(5, 5, 10, 16); err == nil {
		t.Fatal("expected error when display is too small for one column/row")
	}
}

func TestNewTab_ComputesGridFromPixels(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()

	if tab.numPanes != 1 {
		t.Fatalf("expected 1 pane, got %d", tab.numPanes)
	}
	wantCols := 800 / 10
	wantRows := 600/16 - 1
	if tab.panes[0].cols != wantCols || tab.panes[0].rows != wantRows {
		t.Fatalf("got %dx%d, want %dx%d", tab.panes[0].cols, tab.panes[0].rows, wantCols, wantRows)
	}
	if !tab.isActive {
		t.Fatal("expected freshly created tab to be active")
	}
}

func TestTab_SplitVertical(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()

	oldCols := tab.panes[0].cols
	if err := tab.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}
	if tab.numPanes != 2 {
		t.Fatalf("expected 2 panes after split, got %d", tab.numPanes)
	}
	if tab.active != 1 {
		t.Fatal("expected the new right pane to become active")
	}
	if tab.panes[0].cols+tab.panes[1].cols != oldCols {
		t.Fatalf("split columns %d+%d should sum to original %d", tab.panes[0].cols, tab.panes[1].cols, oldCols)
	}
	if tab.panes[1].startColPx != tab.panes[0].cols*10 {
		t.Fatalf("right pane start_col_px = %d, want %d", tab.panes[1].startColPx, tab.panes[0].cols*10)
	}
}

func TestTab_SplitVertical_RejectsWhenAlreadySplit(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()

	if err := tab.SplitVertical(); err != nil {
		t.Fatalf("first split: %v", err)
	}
	if err := tab.SplitVertical(); err == nil {
		t.Fatal("expected error splitting an already-split tab")
	}
}

func TestTab_SplitVertical_RejectsWhenTooNarrow(t *testing.T) {
	tab, err := NewTab(30, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()

	if err := tab.SplitVertical(); err == nil {
		t.Fatal("expected error splitting a tab too narrow for two >=2 column halves")
	}
}

func TestTab_FocusLeftRight(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()
	if err := tab.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}

	tab.FocusLeft()
	if tab.ActivePane() != tab.panes[0] {
		t.Fatal("FocusLeft should activate pane 0")
	}
	tab.FocusRight()
	if tab.ActivePane() != tab.panes[1] {
		t.Fatal("FocusRight should activate pane 1")
	}
}

func TestTab_HandlePaneExit_SingleMarksTabInactive(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()

	tab.panes[0].Close()
	if dead := tab.HandlePaneExit(0); !dead {
		t.Fatal("expected tab to report inactive when its only pane dies")
	}
	if tab.isActive {
		t.Fatal("expected isActive to be false")
	}
}

func TestTab_HandlePaneExit_SplitSurvivesOneDeath(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()
	if err := tab.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}

	leftCols := tab.panes[0].cols
	tab.panes[1].Close()
	if dead := tab.HandlePaneExit(1); dead {
		t.Fatal("tab should still be active with one live pane left")
	}
	if tab.numPanes != 1 || tab.active != 0 {
		t.Fatalf("expected compaction to a single active pane, got numPanes=%d active=%d", tab.numPanes, tab.active)
	}
	if tab.state != tabSingle {
		t.Fatalf("expected tab state to return to single, got %v", tab.state)
	}
	// The survivor keeps its half-width layout; its columns are not
	// restored to the full budget.
	if tab.panes[0].cols != leftCols {
		t.Fatalf("surviving pane resized from %d to %d columns", leftCols, tab.panes[0].cols)
	}
}

func TestTab_HandlePaneExit_LeftDeathKeepsRightOffset(t *testing.T) {
	tab, err := NewTab(800, 600, 10, 16)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	defer tab.Close()
	if err := tab.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}

	rightStart := tab.panes[1].startColPx
	tab.panes[0].Close()
	if dead := tab.HandlePaneExit(0); dead {
		t.Fatal("tab should still be active with one live pane left")
	}
	if tab.numPanes != 1 {
		t.Fatalf("expected one pane after compaction, got %d", tab.numPanes)
	}
	if tab.panes[0].startColPx != rightStart {
		t.Fatalf("survivor's pixel origin moved from %d to %d", rightStart, tab.panes[0].startColPx)
	}
}

package main

import "testing"

func TestClassifyCell_BlankNormalWide(t *testing.T) {
	if k := classifyCell(0, false); k != CellBlank {
		t.Fatalf("expected CellBlank for null rune, got %v", k)
	}
	if k := classifyCell(' ', false); k != CellBlank {
		t.Fatalf("expected CellBlank for space, got %v", k)
	}
	if k := classifyCell('a', false); k != CellNormal {
		t.Fatalf("expected CellNormal for 'a', got %v", k)
	}
	if k := classifyCell('a', true); k != CellWideContinuation {
		t.Fatalf("expected CellWideContinuation, got %v", k)
	}
	if k := classifyCell('中', false); k != CellWide {
		t.Fatalf("expected CellWide for CJK rune, got %v", k)
	}
}

func TestCellWidth(t *testing.T) {
	if w := cellWidth('a'); w != 1 {
		t.Fatalf("expected width 1 for ascii, got %d", w)
	}
	if w := cellWidth('中'); w != 2 {
		t.Fatalf("expected width 2 for CJK, got %d", w)
	}
	if w := cellWidth(0); w != 1 {
		t.Fatalf("expected cellWidth to default to 1 for a non-wide codepoint, got %d", w)
	}
}

func TestPaneStateString(t *testing.T) {
	cases := map[paneState]string{
		paneSpawning: "spawning",
		paneRunning:  "running",
		paneDraining: "draining",
		paneClosed:   "closed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("paneState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestTabStateString(t *testing.T) {
	cases := map[tabState]string{
		tabSingle:  "single",
		tabSplit:   "split",
		tabClosing: "closing",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("tabState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

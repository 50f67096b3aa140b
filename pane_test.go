package main

import (
	"strings"
	"testing"
	"time"
)

func TestNewPane_RejectsNonPositiveGrid(t *testing.T) {
	if _, err := NewPane(0, 10, 10, 16, 0); err == nil {
		t.Fatal("expected error for zero columns")
	}
	if _, err := NewPane(10, 0, 10, 16, 0); err == nil {
		t.Fatal("expected error for zero rows")
	}
}

func TestPane_SpawnWriteDrainClose(t *testing.T) {
	p, err := NewPane(40, 10, 10, 16, 0)
	if err != nil {
		t.Fatalf("NewPane: %v", err)
	}
	defer p.Close()

	if !p.IsAlive() {
		t.Fatal("expected freshly spawned pane to be alive")
	}

	if err := p.WriteInput([]byte("echo hello\n")); err != nil {
		t.Fatalf("WriteInput: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	sawOutput := false
	for time.Now().Before(deadline) {
		fed, derr := p.Drain()
		if derr != nil {
			break
		}
		if fed {
			sawOutput = true
			found := false
			for row := 0; row < p.rows; row++ {
				var sb strings.Builder
				for col := 0; col < p.cols; col++ {
					g := p.Cell(col, row)
					if g.Char != 0 {
						sb.WriteRune(g.Char)
					}
				}
				if strings.Contains(sb.String(), "hello") {
					found = true
				}
			}
			if found {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !sawOutput {
		t.Fatal("expected some output to be drained from the shell")
	}
}

func TestPane_ResizeRejectsNonPositive(t *testing.T) {
	p, err := NewPane(40, 10, 10, 16, 0)
	if err != nil {
		t.Fatalf("NewPane: %v", err)
	}
	defer p.Close()

	if err := p.Resize(0, 10); err == nil {
		t.Fatal("expected error resizing to zero columns")
	}
}

func TestPane_CloseIsIdempotent(t *testing.T) {
	p, err := NewPane(20, 5, 10, 16, 0)
	if err != nil {
		t.Fatalf("NewPane: %v", err)
	}
	p.Close()
	p.Close()
	if p.IsAlive() {
		t.Fatal("expected pane to be dead after Close")
	}
}

//go:build headless

// display_backend_headless.go - display stand-in for tests
//
// A build-tag-gated backend with no kernel dependency, so the
// compositor, event loop and control socket can be exercised without a
// real /dev/dri node.

package main

import "log/slog"

func init() { registerFeature("display: headless") }

type headlessDisplay struct {
	cfg    DisplayConfig
	shadow []byte
	mapped []byte
	master bool
}

func newDisplaySurface(logger *slog.Logger) (DisplaySurface, error) {
	return &headlessDisplay{}, nil
}

func (h *headlessDisplay) Open() error {
	h.cfg = DisplayConfig{Width: 1920, Height: 1080, Stride: 1920 * 4, Size: 1920 * 1080 * 4}
	h.shadow = make([]byte, h.cfg.Size)
	h.mapped = make([]byte, h.cfg.Size)
	h.master = true
	return nil
}

func (h *headlessDisplay) Close() error {
	h.master = false
	return nil
}

func (h *headlessDisplay) Config() DisplayConfig { return h.cfg }
func (h *headlessDisplay) Shadow() []byte        { return h.shadow }

func (h *headlessDisplay) Commit() error {
	copy(h.mapped, h.shadow)
	return nil
}

func (h *headlessDisplay) DropMaster() error {
	h.master = false
	return nil
}

func (h *headlessDisplay) AcquireMaster() error {
	h.master = true
	return nil
}

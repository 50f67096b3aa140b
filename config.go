// config.go - compiled-in constants for the terminal engine

package main

import "time"

const (
	appName = "vtyd"

	// MaxTabs bounds the fixed-capacity tab vector in the application context.
	MaxTabs = 8
	// MaxPanesPerTab is fixed at 2: a tab is either single or vertically split.
	MaxPanesPerTab = 2

	// fontPixelSize is the configured rasterisation size for the monospace face.
	fontPixelSize = 20

	// controlSocketMaxPayload bounds a single client read.
	controlSocketMaxPayload = 63
	controlSocketReadTimeout = 200 * time.Millisecond

	// paneWriteBlockWait is how long a blocked master write waits for
	// writability before it retries; paneWriteMaxRetries bounds the
	// number of such waits before the write surrenders.
	paneWriteBlockWait  = 100 * time.Millisecond
	paneWriteMaxRetries = 50

	// paneReadBufSize is the per-wake drain buffer for a pane master.
	paneReadBufSize = 4096

	defaultShell = "/bin/bash"
)

// fontCandidatePaths is the built-in ordered font-path fallback list
// searched at startup; the first readable entry wins.
var fontCandidatePaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansMono-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSansMono.ttf",
}

// Colour is packed little-endian 0x00RRGGBB per cell, matching the
// scan-out pixel format (XR24); see colors.go for packing helpers.
var (
	defaultFG      = RGB{0xd0, 0xd0, 0xd0}
	defaultBG      = RGB{0x10, 0x10, 0x10}
	cursorFG       = RGB{0x00, 0x00, 0x00}
	cursorBG       = RGB{0xd0, 0xd0, 0xd0}
	tabBarBG       = RGB{0x20, 0x20, 0x20}
	tabBarFG       = RGB{0x90, 0x90, 0x90}
	tabBarActiveBG = RGB{0x40, 0x40, 0x40}
)

// candidate scan-out device paths, enumerated in order at startup.
var drmCandidateDevices = []string{
	"/dev/dri/card0",
	"/dev/dri/card1",
}

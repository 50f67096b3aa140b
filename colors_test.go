package main

import "testing"

func TestRGB_Packed(t *testing.T) {
	c := RGB{R: 0x12, G: 0x34, B: 0x56}
	got := c.Packed()
	want := uint32(0x00123456)
	if got != want {
		t.Fatalf("Packed() = 0x%08X, want 0x%08X", got, want)
	}
}

func TestWritePixelLE(t *testing.T) {
	buf := make([]byte, 4)
	writePixelLE(buf, 0, 0x00123456)
	want := []byte{0x56, 0x34, 0x12, 0x00}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, buf[i], want[i])
		}
	}
}

func TestBlendChannel_FullAndZeroCoverage(t *testing.T) {
	if got := blendChannel(200, 50, 255); got != 200 {
		t.Fatalf("full coverage should return fg, got %d", got)
	}
	if got := blendChannel(200, 50, 0); got != 50 {
		t.Fatalf("zero coverage should return bg, got %d", got)
	}
}

func TestBlendChannel_HalfCoverage(t *testing.T) {
	got := blendChannel(255, 0, 128)
	// round(255*128/255) = round(128) = 128
	if got != 128 {
		t.Fatalf("blendChannel(255,0,128) = %d, want 128", got)
	}
}

func TestBlendRGB(t *testing.T) {
	fg := RGB{255, 0, 0}
	bg := RGB{0, 0, 255}
	blended := blendRGB(fg, bg, 255)
	if blended != fg {
		t.Fatalf("full coverage blend = %+v, want %+v", blended, fg)
	}
}

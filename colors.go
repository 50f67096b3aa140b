// colors.go - RGB packing for the XR24 scan-out pixel format

package main

// RGB is a 24-bit colour triple. Packed() returns it in the little-endian
// 32-bit word the scan-out format demands: padding byte, red, green, blue
// high-to-low, i.e. byte order [B, G, R, 0x00] in memory.
type RGB struct {
	R, G, B uint8
}

// Packed returns the little-endian 0x00RRGGBB word for this colour.
func (c RGB) Packed() uint32 {
	return uint32(c.B) | uint32(c.G)<<8 | uint32(c.R)<<16
}

// writePixelLE stores a packed colour word at buf[offset:offset+4] in the
// byte order the scan-out format requires.
func writePixelLE(buf []byte, offset int, packed uint32) {
	buf[offset] = byte(packed)
	buf[offset+1] = byte(packed >> 8)
	buf[offset+2] = byte(packed >> 16)
	buf[offset+3] = byte(packed >> 24)
}

// blendChannel applies the coverage-weighted rounding rule from the font
// rasteriser contract: round((fg*a + bg*(255-a))/255).
func blendChannel(fg, bg, a uint8) uint8 {
	num := int(fg)*int(a) + int(bg)*(255-int(a))
	return uint8((num + 127) / 255)
}

// blendRGB blends fg over bg with 8-bit coverage a, per channel.
func blendRGB(fg, bg RGB, a uint8) RGB {
	return RGB{
		R: blendChannel(fg.R, bg.R, a),
		G: blendChannel(fg.G, bg.G, a),
		B: blendChannel(fg.B, bg.B, a),
	}
}

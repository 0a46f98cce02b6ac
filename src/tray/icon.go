package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 22

// iconPNG draws the menu-bar glyph: a dashed selection frame with two
// inward arrows. Black on transparent so macOS can tint it.
func iconPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	ink := color.NRGBA{A: 255}

	// dashed frame
	for i := 2; i < iconSize-2; i++ {
		if (i/2)%2 == 0 {
			img.SetNRGBA(i, 2, ink)
			img.SetNRGBA(i, iconSize-3, ink)
			img.SetNRGBA(2, i, ink)
			img.SetNRGBA(iconSize-3, i, ink)
		}
	}
	// diagonal arrows pointing to the center
	for i := 5; i <= 9; i++ {
		img.SetNRGBA(i, i, ink)
		img.SetNRGBA(iconSize-1-i, iconSize-1-i, ink)
	}
	for i := 7; i <= 9; i++ {
		img.SetNRGBA(i, 9, ink)
		img.SetNRGBA(9, i, ink)
		img.SetNRGBA(iconSize-1-i, iconSize-10, ink)
		img.SetNRGBA(iconSize-10, iconSize-1-i, ink)
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// icoFromPNG wraps PNG data in a single-image ICO container, which is what
// the Windows tray expects.
func icoFromPNG(data []byte, size int) []byte {
	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{uint8(size), uint8(size), 0, 0, 1, 32, uint32(len(data)), 6 + 16}
	_ = binary.Write(&buf, binary.LittleEndian, header)
	_ = binary.Write(&buf, binary.LittleEndian, entry)
	buf.Write(data)
	return buf.Bytes()
}

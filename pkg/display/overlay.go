package display

import (
	"image"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// face is the fixed 7x13 bitmap font used for every on-display string.
// Two lines fit comfortably on a 32px-high panel page.
var face = basicfont.Face7x13

// lineHeight returns the vertical advance per text line.
func lineHeight(spacing int) int {
	return face.Ascent + spacing
}

// OverlayOptions positions the text block within the frame.
type OverlayOptions struct {
	OffsetX     int
	OffsetY     int
	LineSpacing int
}

// RenderTextOverlay composites lines of text onto base (a mono1 buffer,
// or nil for a blank frame) and returns a new buffer. The base is never
// modified.
func RenderTextOverlay(base []byte, width, height int, lines []string, opts OverlayOptions) ([]byte, error) {
	var img *image1bit.VerticalLSB
	if base != nil {
		var err error
		img, err = BufferToImage(base, width, height)
		if err != nil {
			return nil, err
		}
	} else {
		img = image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	}

	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(image1bit.On),
		Face: face,
	}
	lh := lineHeight(opts.LineSpacing)
	y := opts.OffsetY
	for _, line := range lines {
		if y >= height {
			break
		}
		drawer.Dot = fixed.P(opts.OffsetX, y+face.Ascent)
		drawer.DrawString(line)
		y += lh
	}
	return ImageToBuffer(img, width, height)
}

// RenderMenuOverlay renders menu lines onto a blank frame, drawing the
// selected line inverted (filled bar, dark text).
func RenderMenuOverlay(lines []string, selected, width, height int) ([]byte, error) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	const padX = 1
	const spacing = 1
	lh := lineHeight(spacing)

	y := 0
	for idx, line := range lines {
		if y >= height {
			break
		}
		if idx == selected {
			fillRect(img, 0, y, width, min(y+lh, height))
			drawText(img, image1bit.Off, padX, y, line)
		} else {
			drawText(img, image1bit.On, padX, y, line)
		}
		y += lh
	}
	return ImageToBuffer(img, width, height)
}

// WrapText splits s on newlines for the fallback text renderers.
func WrapText(s string) []string {
	return strings.Split(s, "\n")
}

func drawText(img *image1bit.VerticalLSB, c image1bit.Bit, x, y int, s string) {
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	drawer.DrawString(s)
}

func fillRect(img *image1bit.VerticalLSB, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetBit(x, y, image1bit.On)
		}
	}
}

package display

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/dmc-robo/go-mobility/pkg/protocol"
)

// The mono1 buffer layout is SSD1306 page order: one byte covers an
// 8-pixel vertical band, LSB on top, index = x + (y/8)*width. This is
// also the in-memory layout of image1bit.VerticalLSB, so conversion
// between the two is a straight copy.

// BufferToImage wraps a mono1 buffer in a drawable 1-bit image.
func BufferToImage(buf []byte, width, height int) (*image1bit.VerticalLSB, error) {
	expected, err := protocol.Mono1Len(width, height)
	if err != nil {
		return nil, err
	}
	if len(buf) != expected {
		return nil, fmt.Errorf("invalid mono1 buffer length: got=%d expected=%d (%dx%d)", len(buf), expected, width, height)
	}
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	copy(img.Pix, buf)
	return img, nil
}

// ImageToBuffer extracts the mono1 buffer from a 1-bit image of the
// expected geometry.
func ImageToBuffer(img *image1bit.VerticalLSB, width, height int) ([]byte, error) {
	expected, err := protocol.Mono1Len(width, height)
	if err != nil {
		return nil, err
	}
	if len(img.Pix) != expected {
		return nil, fmt.Errorf("image pix length %d does not match %dx%d", len(img.Pix), width, height)
	}
	buf := make([]byte, expected)
	copy(buf, img.Pix)
	return buf, nil
}

// convertImage scales src to the display geometry and thresholds it to
// a mono1 buffer.
func convertImage(src image.Image, width, height int) ([]byte, error) {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(gray, gray.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	dst := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if gray.GrayAt(x, y).Y >= 0x80 {
				dst.SetBit(x, y, image1bit.On)
			}
		}
	}
	return ImageToBuffer(dst, width, height)
}

// LoadAsset reads one display asset. ".bin" files are raw mono1 buffers
// of exactly the expected length; anything else is decoded as an image
// (png/jpeg/gif), resized, and thresholded to 1-bit.
func LoadAsset(path string, width, height int) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		expected, err := protocol.Mono1Len(width, height)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if len(data) != expected {
			return nil, fmt.Errorf("invalid mono1 asset length: got=%d expected=%d (%s)", len(data), expected, path)
		}
		return data, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return convertImage(src, width, height)
}

// LoadFramesDir loads every file in dir (sorted by name) as a frame.
// An empty or missing directory is an error so a misconfigured
// animation path is noticed at startup.
func LoadFramesDir(dir string, width, height int) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		frame, err := LoadAsset(filepath.Join(dir, name), width, height)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", name, err)
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	return frames, nil
}

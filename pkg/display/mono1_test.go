package display

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestBufferImageRoundTrip(t *testing.T) {
	const w, h = 16, 8
	buf := make([]byte, 16)
	buf[3] = 0b0000_0101 // x=3: pixels at y=0 and y=2

	img, err := BufferToImage(buf, w, h)
	if err != nil {
		t.Fatalf("BufferToImage: %v", err)
	}
	if img.BitAt(3, 0) != image1bit.On {
		t.Error("pixel (3,0) should be on")
	}
	if img.BitAt(3, 1) != image1bit.Off {
		t.Error("pixel (3,1) should be off")
	}
	if img.BitAt(3, 2) != image1bit.On {
		t.Error("pixel (3,2) should be on")
	}

	out, err := ImageToBuffer(img, w, h)
	if err != nil {
		t.Fatalf("ImageToBuffer: %v", err)
	}
	if !bytes.Equal(out, buf) {
		t.Errorf("round trip mismatch: got %v, want %v", out, buf)
	}
}

func TestBufferToImage_BadLength(t *testing.T) {
	if _, err := BufferToImage(make([]byte, 5), 16, 8); err == nil {
		t.Error("expected error for short buffer")
	}
	if _, err := BufferToImage(make([]byte, 16), 16, 7); err == nil {
		t.Error("expected error for height not multiple of 8")
	}
}

func TestLoadAsset_Bin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.bin")
	want := make([]byte, 16) // 16x8
	want[0] = 0xFF
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadAsset(path, 16, 8)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("bin asset content mismatch")
	}

	if _, err := LoadAsset(path, 32, 8); err == nil {
		t.Error("expected error for wrong-length bin asset")
	}
}

func TestLoadAsset_PNGThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	// 16x8 image, left half white, right half black.
	src := image.NewGray(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetGray(x, y, color.Gray{Y: 0xFF})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	buf, err := LoadAsset(path, 16, 8)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	img, err := BufferToImage(buf, 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if img.BitAt(2, 4) != image1bit.On {
		t.Error("white pixel should threshold to on")
	}
	if img.BitAt(12, 4) != image1bit.Off {
		t.Error("black pixel should threshold to off")
	}
}

func TestLoadFramesDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"02.bin", "01.bin", "03.bin"} {
		buf := make([]byte, 16)
		buf[0] = name[1] // distinguishes frames
		if err := os.WriteFile(filepath.Join(dir, name), buf, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	frames, err := LoadFramesDir(dir, 16, 8)
	if err != nil {
		t.Fatalf("LoadFramesDir: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("frame count: got %d, want 3", len(frames))
	}
	// Sorted by name regardless of directory order.
	if frames[0][0] != '1' || frames[1][0] != '2' || frames[2][0] != '3' {
		t.Errorf("frames not sorted by name: %v %v %v", frames[0][0], frames[1][0], frames[2][0])
	}
}

func TestLoadFramesDir_Empty(t *testing.T) {
	if _, err := LoadFramesDir(t.TempDir(), 16, 8); err == nil {
		t.Error("expected error for empty frames dir")
	}
	if _, err := LoadFramesDir("/nonexistent-frames-dir", 16, 8); err == nil {
		t.Error("expected error for missing dir")
	}
}

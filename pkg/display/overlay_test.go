package display

import (
	"bytes"
	"testing"
)

func countOn(buf []byte) int {
	n := 0
	for _, b := range buf {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderTextOverlay_OnBlank(t *testing.T) {
	buf, err := RenderTextOverlay(nil, 128, 64, []string{"L:+0.50", "R:+0.50"}, OverlayOptions{LineSpacing: 1})
	if err != nil {
		t.Fatalf("RenderTextOverlay: %v", err)
	}
	if len(buf) != 128*64/8 {
		t.Fatalf("buffer length: got %d", len(buf))
	}
	if countOn(buf) == 0 {
		t.Error("text overlay produced a blank frame")
	}
}

func TestRenderTextOverlay_PreservesBase(t *testing.T) {
	base := make([]byte, 128*64/8)
	base[0] = 0x01 // pixel (0,0)

	buf, err := RenderTextOverlay(base, 128, 64, []string{"HI"}, OverlayOptions{OffsetY: 40})
	if err != nil {
		t.Fatalf("RenderTextOverlay: %v", err)
	}
	if buf[0]&0x01 == 0 {
		t.Error("base pixel lost during composition")
	}
	if base[0] != 0x01 || countOn(base) != 1 {
		t.Error("base buffer was modified")
	}
}

func TestRenderTextOverlay_BadBase(t *testing.T) {
	if _, err := RenderTextOverlay(make([]byte, 3), 128, 64, []string{"X"}, OverlayOptions{}); err == nil {
		t.Error("expected error for wrong-length base")
	}
}

func TestRenderMenuOverlay_SelectionBar(t *testing.T) {
	selected, err := RenderMenuOverlay([]string{"CALIB", "WIFI"}, 0, 128, 64)
	if err != nil {
		t.Fatalf("RenderMenuOverlay: %v", err)
	}
	unselected, err := RenderMenuOverlay([]string{"CALIB", "WIFI"}, 1, 128, 64)
	if err != nil {
		t.Fatalf("RenderMenuOverlay: %v", err)
	}
	if bytes.Equal(selected, unselected) {
		t.Error("selection index had no effect on the rendered menu")
	}
	// The inverted selection bar lights far more pixels than plain text.
	if countOn(selected) < 128 {
		t.Errorf("selection bar missing: only %d pixels on", countOn(selected))
	}
}

func TestWrapText(t *testing.T) {
	lines := WrapText("robot-01\nREADY")
	if len(lines) != 2 || lines[0] != "robot-01" || lines[1] != "READY" {
		t.Errorf("WrapText: got %v", lines)
	}
}

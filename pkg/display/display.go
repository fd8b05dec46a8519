package display

import (
	"sync"

	"github.com/dmc-robo/go-mobility/internal/log"
)

// Display is the driver boundary the render loop pushes frames to.
// Implementations must tolerate being called from a single render
// goroutine plus Close from the shutdown path.
type Display interface {
	// ShowMono1 pushes a full-frame mono1 buffer to the panel.
	ShowMono1(buf []byte) error
	// ShowText renders text as a frame (newline separated lines) and
	// pushes it.
	ShowText(text string) error
	// Close blanks and releases the panel. Idempotent.
	Close() error
}

// MockDisplay logs what would be shown and records the last frame for
// tests and dry runs.
type MockDisplay struct {
	mu        sync.Mutex
	lastText  string
	lastMono1 []byte
	frames    int
	closed    bool
}

// NewMockDisplay creates a display that only logs.
func NewMockDisplay() *MockDisplay {
	return &MockDisplay{}
}

// ShowMono1 records the frame.
func (m *MockDisplay) ShowMono1(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMono1 = append(m.lastMono1[:0], buf...)
	m.lastText = ""
	m.frames++
	return nil
}

// ShowText records the text, logging only on change to keep dry-run
// output readable.
func (m *MockDisplay) ShowText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text != m.lastText {
		log.Info("mock oled", "text", text)
	}
	m.lastText = text
	m.lastMono1 = nil
	m.frames++
	return nil
}

// Close marks the display released.
func (m *MockDisplay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// LastText returns the most recent text frame, or "" after a bitmap.
func (m *MockDisplay) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

// LastMono1 returns a copy of the most recent bitmap frame, or nil.
func (m *MockDisplay) LastMono1() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastMono1 == nil {
		return nil
	}
	out := make([]byte, len(m.lastMono1))
	copy(out, m.lastMono1)
	return out
}

// Frames returns how many frames were pushed.
func (m *MockDisplay) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

var _ Display = (*MockDisplay)(nil)

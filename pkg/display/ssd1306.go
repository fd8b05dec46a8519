package display

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/dmc-robo/go-mobility/pkg/protocol"
)

// SSD1306Display drives the robot's I2C OLED panel through periph.io.
type SSD1306Display struct {
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	width  int
	height int

	mu     sync.Mutex
	closed bool
}

// SSD1306Opts selects the bus and panel geometry.
type SSD1306Opts struct {
	// I2CBus is the periph bus name; "" picks the first available.
	I2CBus string
	Width  int
	Height int
}

// NewSSD1306 initializes the host drivers, opens the I2C bus, and
// configures the panel.
func NewSSD1306(opts SSD1306Opts) (*SSD1306Display, error) {
	if _, err := protocol.Mono1Len(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(opts.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opts.I2CBus, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: opts.Width, H: opts.Height})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	return &SSD1306Display{bus: bus, dev: dev, width: opts.Width, height: opts.Height}, nil
}

// ShowMono1 writes a full frame. The mono1 buffer layout matches the
// panel's native page order, so no conversion is needed.
func (d *SSD1306Display) ShowMono1(buf []byte) error {
	expected, err := protocol.Mono1Len(d.width, d.height)
	if err != nil {
		return err
	}
	if len(buf) != expected {
		return fmt.Errorf("invalid frame length: got=%d expected=%d", len(buf), expected)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("display is closed")
	}
	if _, err := d.dev.Write(buf); err != nil {
		return fmt.Errorf("ssd1306 write: %w", err)
	}
	return nil
}

// ShowText renders newline-separated text on a blank frame and writes
// it.
func (d *SSD1306Display) ShowText(text string) error {
	buf, err := RenderTextOverlay(nil, d.width, d.height, WrapText(text), OverlayOptions{LineSpacing: 1})
	if err != nil {
		return err
	}
	return d.ShowMono1(buf)
}

// Close blanks the panel and releases the bus. Idempotent.
func (d *SSD1306Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.dev.Halt(); err != nil {
		d.bus.Close()
		return err
	}
	return d.bus.Close()
}

var _ Display = (*SSD1306Display)(nil)

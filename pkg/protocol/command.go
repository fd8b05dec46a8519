// Package protocol defines the wire types exchanged over the robot's
// pub/sub bus and the strict decoders that turn inbound payloads into
// typed commands. Malformed payloads are rejected with an error and must
// never alter node state.
package protocol

import (
	"encoding/json"
	"fmt"
)

// DefaultDeadmanMS is used when a motor command does not declare its own
// deadman timeout and no node-level default is configured.
const DefaultDeadmanMS = 300

// DefaultUnit is the velocity unit assumed when a command omits it.
const DefaultUnit = "mps"

// MotorCommand is one decoded motor actuation command. Immutable once
// constructed; the deadman monitor and the drive-mode renderer both read
// the last received value as a snapshot.
type MotorCommand struct {
	VL        float64
	VR        float64
	Unit      string
	DeadmanMS *int // nil when the sender left the timeout to the node default
	Seq       *int64
	TSMS      *int64
}

// DeadmanOrDefault returns the command's declared deadman timeout, or
// def when the sender did not set one. A declared zero means "stop on
// the next check tick" and is returned as-is.
func (c MotorCommand) DeadmanOrDefault(def int) int {
	if c.DeadmanMS != nil {
		return *c.DeadmanMS
	}
	return def
}

// Moving reports whether the command requests non-zero velocity on
// either wheel.
func (c MotorCommand) Moving() bool {
	const eps = 1e-3
	return c.VL > eps || c.VL < -eps || c.VR > eps || c.VR < -eps
}

type motorCommandWire struct {
	VL        *float64 `json:"v_l"`
	VR        *float64 `json:"v_r"`
	Unit      string   `json:"unit"`
	DeadmanMS *int     `json:"deadman_ms"`
	Seq       *int64   `json:"seq"`
	TSMS      *int64   `json:"ts_ms"`
}

// DecodeMotorCommand parses and validates a motor/cmd payload.
func DecodeMotorCommand(payload []byte) (MotorCommand, error) {
	var w motorCommandWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return MotorCommand{}, fmt.Errorf("invalid motor cmd: %w", err)
	}
	if w.VL == nil {
		return MotorCommand{}, fmt.Errorf("invalid motor cmd: v_l must be a number")
	}
	if w.VR == nil {
		return MotorCommand{}, fmt.Errorf("invalid motor cmd: v_r must be a number")
	}
	if w.DeadmanMS != nil && *w.DeadmanMS < 0 {
		return MotorCommand{}, fmt.Errorf("invalid motor cmd: deadman_ms must be >= 0, got %d", *w.DeadmanMS)
	}
	unit := w.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	return MotorCommand{
		VL:        *w.VL,
		VR:        *w.VR,
		Unit:      unit,
		DeadmanMS: w.DeadmanMS,
		Seq:       w.Seq,
		TSMS:      w.TSMS,
	}, nil
}

// DisplayText is a decoded oled/cmd payload: text to flash on the
// display as a temporary override.
type DisplayText struct {
	Text string `json:"text"`
	TSMS *int64 `json:"ts_ms,omitempty"`
}

// DecodeDisplayText parses an oled/cmd payload.
func DecodeDisplayText(payload []byte) (DisplayText, error) {
	var d DisplayText
	if err := json.Unmarshal(payload, &d); err != nil {
		return DisplayText{}, fmt.Errorf("invalid oled cmd: %w", err)
	}
	return d, nil
}

// ModeCommand is a decoded oled/mode payload: a remote request to switch
// the display mode, optionally positioning the settings cursor.
type ModeCommand struct {
	Mode          string `json:"mode"`
	SettingsIndex *int   `json:"settings_index,omitempty"`
	TSMS          *int64 `json:"ts_ms,omitempty"`
}

// DecodeModeCommand parses an oled/mode payload. Mode name validation is
// left to the mode manager, which knows the registered set.
func DecodeModeCommand(payload []byte) (ModeCommand, error) {
	var m ModeCommand
	if err := json.Unmarshal(payload, &m); err != nil {
		return ModeCommand{}, fmt.Errorf("invalid oled mode cmd: %w", err)
	}
	if m.Mode == "" {
		return ModeCommand{}, fmt.Errorf("invalid oled mode cmd: mode must be a non-empty string")
	}
	return m, nil
}

// Mono1Len returns the expected byte length of a raw 1-bit page-ordered
// bitmap for the given display geometry. Height must be a multiple of 8
// (SSD1306 page layout).
func Mono1Len(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("width/height must be > 0, got %dx%d", width, height)
	}
	if height%8 != 0 {
		return 0, fmt.Errorf("height must be a multiple of 8, got %d", height)
	}
	return width * height / 8, nil
}

// Package node wires the mobility subsystems together: bus
// subscriptions, the deadman control loop, the OLED render loop,
// button polling and telemetry publishers, plus graceful shutdown.
package node

import (
	"sync"

	"github.com/dmc-robo/go-mobility/internal/log"
)

// Motor is the velocity sink the command handler and the deadman
// monitor drive. Implementations translate wheel velocities to whatever
// the motor driver takes; the node never deals in pulse widths except
// to echo them as telemetry.
type Motor interface {
	// SetVelocityMPS applies left/right wheel velocities in m/s.
	SetVelocityMPS(vl, vr float64) error
	// Stop halts both wheels immediately. Must be safe to call at any
	// time, including concurrently with SetVelocityMPS.
	Stop() error
	// PulseWidths returns the applied and raw (pre-trim) pulse widths
	// for telemetry.
	PulseWidths() (pwL, pwR, pwLRaw, pwRRaw int)
	Close() error
}

var _ Motor = (*MockMotor)(nil)

// MockMotor models a servo-style ESC: 1500us neutral, +-400us per m/s,
// clamped to [1100, 1900]. Used in dry runs and tests.
type MockMotor struct {
	mu     sync.Mutex
	pwL    int
	pwR    int
	pwLRaw int
	pwRRaw int
	closed bool
}

// NewMockMotor starts at neutral.
func NewMockMotor() *MockMotor {
	return &MockMotor{pwL: 1500, pwR: 1500, pwLRaw: 1500, pwRRaw: 1500}
}

func velocityToPulse(v float64) int {
	pw := 1500 + int(400*v)
	if pw < 1100 {
		pw = 1100
	}
	if pw > 1900 {
		pw = 1900
	}
	return pw
}

func (m *MockMotor) SetVelocityMPS(vl, vr float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pwLRaw = 1500 + int(400*vl)
	m.pwRRaw = 1500 + int(400*vr)
	m.pwL = velocityToPulse(vl)
	m.pwR = velocityToPulse(vr)
	return nil
}

func (m *MockMotor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pwL != 1500 || m.pwR != 1500 {
		log.Info("mock motor stop")
	}
	m.pwL, m.pwR = 1500, 1500
	m.pwLRaw, m.pwRRaw = 1500, 1500
	return nil
}

func (m *MockMotor) PulseWidths() (int, int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pwL, m.pwR, m.pwLRaw, m.pwRRaw
}

func (m *MockMotor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Stopped reports whether both wheels are at neutral.
func (m *MockMotor) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pwL == 1500 && m.pwR == 1500
}

package node

import (
	"math"
	"sync"

	"github.com/dmc-robo/go-mobility/pkg/protocol"
	"github.com/dmc-robo/go-mobility/pkg/timing"
)

// IMU produces gyro/accel samples for the telemetry loop.
type IMU interface {
	Read() (protocol.IMUState, error)
	Close() error
}

var _ IMU = (*MockIMU)(nil)

// MockIMU synthesizes a gentle sway so dry-run subscribers see changing
// values instead of a flat line.
type MockIMU struct {
	mu     sync.Mutex
	closed bool
}

// NewMockIMU builds a mock IMU.
func NewMockIMU() *MockIMU {
	return &MockIMU{}
}

func (m *MockIMU) Read() (protocol.IMUState, error) {
	now := timing.MonotonicMS()
	phase := float64(now) / 1000.0
	return protocol.IMUState{
		GX:   0.02 * math.Sin(phase),
		GY:   0.02 * math.Cos(phase),
		GZ:   0,
		AX:   0.05 * math.Sin(phase/3),
		AY:   0,
		AZ:   9.81,
		TSMS: timing.WallClockMS(),
	}, nil
}

func (m *MockIMU) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Package safety implements the deadman timeout on motor actuation: if
// commands stop arriving, the motors are forced to a stop exactly once
// per staleness episode.
package safety

import (
	"sync"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/protocol"
)

// StopFunc drives the actuator to a safe stop. Failures are logged by
// the monitor and never stop its ticking.
type StopFunc func() error

// Snapshot is an atomic copy of the last recorded motor command, shared
// with the drive and legacy renderers.
type Snapshot struct {
	Cmd       protocol.MotorCommand
	ArrivalMS int64
	DeadmanMS int
	OK        bool // false until the first Record
}

// Fresh reports whether the command arrived within its deadman window
// as of nowMS.
func (s Snapshot) Fresh(nowMS int64) bool {
	return s.OK && nowMS-s.ArrivalMS <= int64(s.DeadmanMS)
}

// Monitor tracks the last-seen motor command and fires the stop action
// when it goes stale. All methods are safe for concurrent use; the
// inbound-message callback calls Record while the control loop calls
// Check.
type Monitor struct {
	mu        sync.Mutex
	defaultMS int
	stop      StopFunc

	cmd       protocol.MotorCommand
	arrivalMS int64
	deadmanMS int
	haveCmd   bool
	active    bool
}

// NewMonitor creates a monitor with the configured default timeout,
// used when a command does not declare its own.
func NewMonitor(defaultDeadmanMS int, stop StopFunc) *Monitor {
	if defaultDeadmanMS < 0 {
		defaultDeadmanMS = protocol.DefaultDeadmanMS
	}
	return &Monitor{defaultMS: defaultDeadmanMS, stop: stop}
}

// Record stores cmd and its arrival time and re-arms the monitor. Each
// command's effective timeout is its own declared deadman_ms, falling
// back to the configured default when unset.
func (m *Monitor) Record(cmd protocol.MotorCommand, nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmd = cmd
	m.arrivalMS = nowMS
	m.deadmanMS = cmd.DeadmanOrDefault(m.defaultMS)
	m.haveCmd = true
	m.active = true
}

// Arm marks the actuator active without a command, so the deadman fires
// after startup even if no command ever arrives. Used by dry runs to
// demonstrate the safety path.
func (m *Monitor) Arm(nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arrivalMS = nowMS
	m.deadmanMS = m.defaultMS
	m.active = true
}

// Check fires the stop action when the last command is older than its
// timeout. It returns true only on the tick that triggered the stop;
// repeated calls after a trigger are no-ops until the next Record. A
// zero timeout stops on the first check after the command.
func (m *Monitor) Check(nowMS int64) bool {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return false
	}
	age := nowMS - m.arrivalMS
	deadman := int64(m.deadmanMS)
	if deadman > 0 && age <= deadman {
		m.mu.Unlock()
		return false
	}
	// Clear before releasing the lock so a concurrent Check cannot
	// double-trigger while the stop action runs.
	m.active = false
	stop := m.stop
	m.mu.Unlock()

	log.Warn("deadman timeout, stopping motor", "age_ms", age, "deadman_ms", deadman)
	if stop != nil {
		if err := stop(); err != nil {
			log.Warn("deadman stop action failed", "error", err)
		}
	}
	return true
}

// Active reports whether the actuator is considered live (a command was
// recorded and the deadman has not fired since).
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Snapshot returns an atomic copy of the last recorded command for
// renderers. OK is false before the first Record.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Cmd:       m.cmd,
		ArrivalMS: m.arrivalMS,
		DeadmanMS: m.deadmanMS,
		OK:        m.haveCmd,
	}
}

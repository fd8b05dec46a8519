package node

import (
	"encoding/json"
	"testing"

	"github.com/dmc-robo/go-mobility/internal/config"
	"github.com/dmc-robo/go-mobility/pkg/display"
	"github.com/dmc-robo/go-mobility/pkg/protocol"
	"github.com/dmc-robo/go-mobility/pkg/timing"
	"github.com/dmc-robo/go-mobility/pkg/transport"
	"github.com/dmc-robo/go-mobility/pkg/ui"
)

type fixture struct {
	node  *Node
	bus   *transport.MockBus
	disp  *display.MockDisplay
	motor *MockMotor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Settings.Enabled = false

	bus := transport.NewMockBus()
	disp := display.NewMockDisplay()
	motor := NewMockMotor()

	n, err := New(Options{
		Cfg:     cfg,
		Bus:     bus,
		Display: disp,
		Motor:   motor,
		IMU:     NewMockIMU(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.subscribe(); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(n.teardown)
	return &fixture{node: n, bus: bus, disp: disp, motor: motor}
}

func (f *fixture) publish(t *testing.T, key func(string) (string, error), payload []byte) {
	t.Helper()
	topic, err := key(f.node.cfg.RobotID)
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	if err := f.bus.Publish(topic, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestMotorCommandDrivesMotorAndArmsDeadman(t *testing.T) {
	f := newFixture(t)

	f.publish(t, protocol.MotorCmdKey, []byte(`{"v_l":0.5,"v_r":-0.5}`))

	pwL, pwR, _, _ := f.motor.PulseWidths()
	if pwL != 1700 || pwR != 1300 {
		t.Fatalf("pulse widths = %d, %d", pwL, pwR)
	}
	if !f.node.monitor.Active() {
		t.Fatal("deadman not armed by command")
	}
}

func TestMalformedMotorCommandIgnored(t *testing.T) {
	f := newFixture(t)

	f.publish(t, protocol.MotorCmdKey, []byte(`{"v_l":"fast"}`))

	if !f.motor.Stopped() {
		t.Fatal("malformed command moved the motor")
	}
	if f.node.monitor.Active() {
		t.Fatal("malformed command armed the deadman")
	}
}

func TestDeadmanStopsStaleCommand(t *testing.T) {
	f := newFixture(t)

	now := timing.MonotonicMS()
	f.node.monitor.Record(protocol.MotorCommand{VL: 0.3, VR: 0.3}, now)
	if err := f.motor.SetVelocityMPS(0.3, 0.3); err != nil {
		t.Fatal(err)
	}

	f.node.deadmanTick(now + 250)
	if f.motor.Stopped() {
		t.Fatal("deadman fired before timeout")
	}
	f.node.deadmanTick(now + 350)
	if !f.motor.Stopped() {
		t.Fatal("deadman did not stop the motor")
	}
}

func TestTextOverrideWinsRender(t *testing.T) {
	f := newFixture(t)

	f.publish(t, protocol.OledCmdKey, []byte(`{"text":"HELLO"}`))

	now := timing.MonotonicMS()
	f.node.renderTick(now)
	if got := f.disp.LastText(); got != "HELLO" {
		t.Fatalf("text = %q, want HELLO", got)
	}

	// Expired override falls back to the mode renderer.
	f.node.renderTick(now + f.node.overrideTTLMS() + 1)
	if got := f.disp.LastText(); got == "HELLO" {
		t.Fatal("override did not expire")
	}
}

func TestWrongLengthImageRejectedKeepsOverride(t *testing.T) {
	f := newFixture(t)

	f.publish(t, protocol.OledCmdKey, []byte(`{"text":"KEEP"}`))
	f.publish(t, protocol.OledImageMono1Key, make([]byte, 17))

	f.node.renderTick(timing.MonotonicMS())
	if got := f.disp.LastText(); got != "KEEP" {
		t.Fatalf("text = %q, want prior override preserved", got)
	}
}

func TestFullLengthImageOverrides(t *testing.T) {
	f := newFixture(t)

	want, err := protocol.Mono1Len(f.node.cfg.OLED.Width, f.node.cfg.OLED.Height)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, want)
	for i := range buf {
		buf[i] = 0xAA
	}
	f.publish(t, protocol.OledImageMono1Key, buf)

	f.node.renderTick(timing.MonotonicMS())
	got := f.disp.LastMono1()
	if len(got) != want || got[0] != 0xAA {
		t.Fatalf("frame len %d first byte %#x", len(got), got[0])
	}
}

func TestModeCommandSwitchesModeWithIndex(t *testing.T) {
	f := newFixture(t)

	idx := 3
	payload, _ := json.Marshal(map[string]any{"mode": "settings", "settings_index": idx})
	f.publish(t, protocol.OledModeKey, payload)

	if got := f.node.manager.Mode(); got != ui.ModeSettings {
		t.Fatalf("mode = %q, want settings", got)
	}
	if got := f.node.manager.SettingsIndex(); got != idx {
		t.Fatalf("index = %d, want %d", got, idx)
	}
}

func TestMotorTelemetryPublishes(t *testing.T) {
	f := newFixture(t)

	f.publish(t, protocol.MotorCmdKey, []byte(`{"v_l":0.25,"v_r":0.25,"seq":7}`))
	f.node.motorTelemetryTick(timing.MonotonicMS())

	topic, _ := protocol.MotorTelemetryKey(f.node.cfg.RobotID)
	sent := f.bus.SentTo(topic)
	if len(sent) != 1 {
		t.Fatalf("telemetry messages = %d, want 1", len(sent))
	}
	var tele protocol.MotorTelemetry
	if err := json.Unmarshal(sent[0], &tele); err != nil {
		t.Fatal(err)
	}
	if tele.PWL != 1600 || tele.PWR != 1600 {
		t.Fatalf("pw = %d, %d", tele.PWL, tele.PWR)
	}
	if tele.CmdSeq == nil || *tele.CmdSeq != 7 {
		t.Fatalf("cmd_seq = %v", tele.CmdSeq)
	}
}

func TestIMUTickPublishes(t *testing.T) {
	f := newFixture(t)

	f.node.imuTick(timing.MonotonicMS())

	topic, _ := protocol.IMUStateKey(f.node.cfg.RobotID)
	if got := len(f.bus.SentTo(topic)); got != 1 {
		t.Fatalf("imu messages = %d, want 1", got)
	}
	var state protocol.IMUState
	if err := json.Unmarshal(f.bus.SentTo(topic)[0], &state); err != nil {
		t.Fatal(err)
	}
	if state.AZ < 9 || state.AZ > 10.5 {
		t.Fatalf("az = %v", state.AZ)
	}
}

func TestCommandLogRateLimited(t *testing.T) {
	f := newFixture(t)

	if !f.node.shouldLogCmd(0) {
		t.Fatal("first command not logged")
	}
	if f.node.shouldLogCmd(50) {
		t.Fatal("command inside interval logged")
	}
	if !f.node.shouldLogCmd(150) {
		t.Fatal("command past interval not logged")
	}
}

func TestOverridePrecedenceOverTransition(t *testing.T) {
	cfg := config.Default()
	bus := transport.NewMockBus()
	disp := display.NewMockDisplay()

	seq := display.NewFrameSequence([][]byte{make([]byte, 1024)}, 10, false)
	n, err := New(Options{
		Cfg:     cfg,
		Bus:     bus,
		Display: disp,
		Motor:   NewMockMotor(),
		Assets:  ui.Assets{ModeSwitch: seq},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(n.teardown)

	now := timing.MonotonicMS()
	n.manager.SetMode(ui.ModeDrive, now)
	n.override.SetText("OVERRIDE", now, 5000)

	n.renderTick(now)
	if got := disp.LastText(); got != "OVERRIDE" {
		t.Fatalf("text = %q, override must outrank the transition", got)
	}
}

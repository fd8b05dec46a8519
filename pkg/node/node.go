package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/dmc-robo/go-mobility/internal/config"
	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/actions"
	"github.com/dmc-robo/go-mobility/pkg/display"
	"github.com/dmc-robo/go-mobility/pkg/input"
	"github.com/dmc-robo/go-mobility/pkg/protocol"
	"github.com/dmc-robo/go-mobility/pkg/safety"
	"github.com/dmc-robo/go-mobility/pkg/timing"
	"github.com/dmc-robo/go-mobility/pkg/transport"
	"github.com/dmc-robo/go-mobility/pkg/ui"
)

const (
	// deadmanHz is the safety check rate. The check is cheap; 20Hz keeps
	// worst-case stop latency to one period past the timeout.
	deadmanHz = 20

	// cmdLogIntervalMS rate-limits motor command logging at stream rates.
	cmdLogIntervalMS = 100

	// shutdownTimeout bounds how long Run waits for loops to drain.
	shutdownTimeout = 3 * time.Second
)

// Options assembles a Node from its collaborators. Bus, Display and
// Motor are required; IMU is optional (no IMU loop without it), as are
// the button pins.
type Options struct {
	Cfg     config.Config
	Bus     transport.Bus
	Display display.Display
	Motor   Motor
	IMU     IMU
	Assets  ui.Assets

	// ButtonA and ButtonB are opened active-low pins; nil disables the
	// poller regardless of config.
	ButtonA gpio.PinIO
	ButtonB gpio.PinIO

	// LogAllCommands disables the motor command log rate limit.
	LogAllCommands bool

	// DryRun arms the deadman at boot so the stop path demonstrably
	// fires without any inbound traffic.
	DryRun bool
}

// Node is the supervisory control node: it owns the subscriptions, the
// periodic loops and the shutdown sequence.
type Node struct {
	cfg  config.Config
	bus  transport.Bus
	disp display.Display

	motor   Motor
	imu     IMU
	monitor *safety.Monitor
	manager *ui.Manager
	runner  *actions.Runner

	override overrideState

	opts Options

	logMu        sync.Mutex
	lastCmdLogMS int64

	subs []transport.Subscription
	wg   sync.WaitGroup
}

// New wires a node. It does not touch the bus yet; Run does.
func New(opts Options) (*Node, error) {
	if opts.Bus == nil || opts.Display == nil || opts.Motor == nil {
		return nil, fmt.Errorf("node requires bus, display and motor")
	}
	cfg := opts.Cfg

	n := &Node{
		cfg:          cfg,
		bus:          opts.Bus,
		disp:         opts.Display,
		motor:        opts.Motor,
		imu:          opts.IMU,
		opts:         opts,
		lastCmdLogMS: -cmdLogIntervalMS,
	}

	n.monitor = safety.NewMonitor(cfg.Motor.DeadmanMS, opts.Motor.Stop)
	n.manager = ui.NewManager(opts.Display, ui.Config{
		RobotID:       cfg.RobotID,
		Width:         cfg.OLED.Width,
		Height:        cfg.OLED.Height,
		DefaultMode:   cfg.OLED.DefaultMode,
		WelcomeOnBoot: cfg.OLED.WelcomeOnBoot,
	}, opts.Assets, timing.MonotonicMS())
	n.runner = actions.NewRunner(actions.Config{
		Enabled:      cfg.Settings.Enabled,
		CooldownMS:   int64(cfg.Settings.CooldownS * 1000),
		DryRun:       opts.DryRun,
		WifiSSID:     cfg.Settings.WifiSSID,
		WifiPSKEnv:   cfg.Settings.WifiPSKEnv,
		TargetBranch: cfg.Settings.BranchTarget,
		Sudo:         cfg.Settings.SudoCmd,
		Commands:     cfg.Settings.Commands,
	})
	return n, nil
}

// Manager exposes the mode machine, mainly for tests and the dry-run
// demo.
func (n *Node) Manager() *ui.Manager { return n.manager }

// Monitor exposes the deadman monitor.
func (n *Node) Monitor() *safety.Monitor { return n.monitor }

// Run subscribes, starts every loop and blocks until ctx is cancelled,
// then shuts the node down. It returns the first setup error, nil on a
// clean shutdown.
func (n *Node) Run(ctx context.Context) error {
	if err := n.subscribe(); err != nil {
		n.teardown()
		return err
	}

	if n.opts.DryRun {
		// Boot with the deadman armed so the stop fires once even with
		// no publisher attached.
		n.monitor.Arm(timing.MonotonicMS())
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.startLoop(loopCtx, "render", n.cfg.OLED.MaxHz, n.renderTick)
	n.startLoop(loopCtx, "deadman", deadmanHz, n.deadmanTick)
	if n.cfg.Motor.TelemetryHz > 0 {
		n.startLoop(loopCtx, "motor-telemetry", n.cfg.Motor.TelemetryHz, n.motorTelemetryTick)
	}
	if n.imu != nil && n.cfg.IMU.PublishHz > 0 {
		n.startLoop(loopCtx, "imu", n.cfg.IMU.PublishHz, n.imuTick)
	}
	n.startButtons(loopCtx)

	log.Info("mobility node running", "robot_id", n.cfg.RobotID)
	<-ctx.Done()
	log.Info("mobility node stopping")

	cancel()
	n.teardown()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		n.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Warn("shutdown timed out waiting for loops")
	}
	return nil
}

// startLoop runs tick at hz until ctx is cancelled.
func (n *Node) startLoop(ctx context.Context, name string, hz float64, tick func(nowMS int64)) {
	sleeper, err := timing.NewPeriodicSleeper(hz)
	if err != nil {
		log.Warn("loop disabled", "loop", name, "hz", hz, "error", err)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		log.Debug("loop started", "loop", name, "hz", hz)
		for sleeper.Sleep(ctx) {
			tick(timing.MonotonicMS())
		}
		log.Debug("loop stopped", "loop", name)
	}()
}

func (n *Node) startButtons(ctx context.Context) {
	if !n.cfg.Buttons.Enabled || n.opts.ButtonA == nil || n.opts.ButtonB == nil {
		return
	}
	policy := input.NewPolicy(n.manager, n.runner)
	poller := input.NewPoller(n.opts.ButtonA, n.opts.ButtonB, policy, input.PollerConfig{
		PollMS:      n.cfg.Buttons.PollMS,
		DebounceMS:  n.cfg.Buttons.DebounceMS,
		LongPressMS: n.cfg.Buttons.LongPressMS,
	})
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		poller.Run(ctx)
	}()
}

// subscribe attaches all inbound handlers.
func (n *Node) subscribe() error {
	type sub struct {
		key func(string) (string, error)
		fn  transport.Handler
	}
	for _, s := range []sub{
		{protocol.MotorCmdKey, n.onMotorCmd},
		{protocol.OledCmdKey, n.onOledCmd},
		{protocol.OledImageMono1Key, n.onOledImage},
		{protocol.OledModeKey, n.onOledMode},
	} {
		topic, err := s.key(n.cfg.RobotID)
		if err != nil {
			return fmt.Errorf("topic key: %w", err)
		}
		subscription, err := n.bus.Subscribe(topic, s.fn)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		n.subs = append(n.subs, subscription)
	}
	return nil
}

func (n *Node) onMotorCmd(payload []byte) {
	cmd, err := protocol.DecodeMotorCommand(payload)
	if err != nil {
		log.Warn("bad motor command", "error", err)
		return
	}
	now := timing.MonotonicMS()
	n.monitor.Record(cmd, now)
	if err := n.motor.SetVelocityMPS(cmd.VL, cmd.VR); err != nil {
		log.Warn("motor apply failed", "error", err)
	}
	if n.shouldLogCmd(now) {
		log.Info("motor cmd", "v_l", cmd.VL, "v_r", cmd.VR, "deadman_ms", cmd.DeadmanOrDefault(n.cfg.Motor.DeadmanMS))
	}
}

// shouldLogCmd rate-limits command logging so a 50Hz teleop stream does
// not flood the journal.
func (n *Node) shouldLogCmd(nowMS int64) bool {
	if n.opts.LogAllCommands {
		return true
	}
	n.logMu.Lock()
	defer n.logMu.Unlock()
	if nowMS-n.lastCmdLogMS < cmdLogIntervalMS {
		return false
	}
	n.lastCmdLogMS = nowMS
	return true
}

func (n *Node) onOledCmd(payload []byte) {
	msg, err := protocol.DecodeDisplayText(payload)
	if err != nil {
		log.Warn("bad oled command", "error", err)
		return
	}
	n.override.SetText(msg.Text, timing.MonotonicMS(), n.overrideTTLMS())
}

func (n *Node) onOledImage(payload []byte) {
	want, err := protocol.Mono1Len(n.cfg.OLED.Width, n.cfg.OLED.Height)
	if err != nil {
		log.Warn("oled image rejected", "error", err)
		return
	}
	if len(payload) != want {
		log.Warn("oled image rejected", "len", len(payload), "want", want)
		return
	}
	n.override.SetBitmap(payload, timing.MonotonicMS(), n.overrideTTLMS())
}

func (n *Node) onOledMode(payload []byte) {
	msg, err := protocol.DecodeModeCommand(payload)
	if err != nil {
		log.Warn("bad oled mode command", "error", err)
		return
	}
	n.manager.SetModeOpts(msg.Mode, timing.MonotonicMS(), ui.SetModeOptions{
		SettingsIndex: msg.SettingsIndex,
	})
}

func (n *Node) overrideTTLMS() int64 {
	return int64(n.cfg.OLED.OverrideS * 1000)
}

// renderTick draws one frame: an active override wins, then the mode
// machine (which itself prefers a running transition).
func (n *Node) renderTick(nowMS int64) {
	kind, text, bitmap := n.override.Snapshot(nowMS)
	switch kind {
	case overrideText:
		if err := n.disp.ShowText(text); err != nil {
			log.Warn("oled override render failed", "error", err)
		}
		return
	case overrideBitmap:
		if err := n.disp.ShowMono1(bitmap); err != nil {
			log.Warn("oled override render failed", "error", err)
		}
		return
	}
	n.manager.Render(nowMS, n.monitor.Snapshot())
}

func (n *Node) deadmanTick(nowMS int64) {
	n.monitor.Check(nowMS)
}

func (n *Node) motorTelemetryTick(nowMS int64) {
	pwL, pwR, pwLRaw, pwRRaw := n.motor.PulseWidths()
	t := protocol.MotorTelemetry{
		PWL:    pwL,
		PWR:    pwR,
		PWLRaw: pwLRaw,
		PWRRaw: pwRRaw,
		TSMS:   timing.WallClockMS(),
	}
	if snap := n.monitor.Snapshot(); snap.OK {
		cmd := snap.Cmd
		t.CmdVL, t.CmdVR = &cmd.VL, &cmd.VR
		t.CmdUnit = &cmd.Unit
		t.CmdSeq = cmd.Seq
		t.CmdTSMS = cmd.TSMS
		t.CmdDeadMS = cmd.DeadmanMS
	}
	topic, err := protocol.MotorTelemetryKey(n.cfg.RobotID)
	if err != nil {
		return
	}
	if err := transport.PublishJSON(n.bus, topic, t); err != nil {
		log.Warn("motor telemetry publish failed", "error", err)
	}
}

func (n *Node) imuTick(nowMS int64) {
	state, err := n.imu.Read()
	if err != nil {
		log.Warn("imu read failed", "error", err)
		return
	}
	topic, err := protocol.IMUStateKey(n.cfg.RobotID)
	if err != nil {
		return
	}
	if err := transport.PublishJSON(n.bus, topic, state); err != nil {
		log.Warn("imu publish failed", "error", err)
	}
}

// teardown releases external resources. Loops are joined by Run.
func (n *Node) teardown() {
	for _, s := range n.subs {
		if err := s.Close(); err != nil {
			log.Warn("unsubscribe failed", "error", err)
		}
	}
	n.subs = nil
	if err := n.motor.Stop(); err != nil {
		log.Warn("motor stop on shutdown failed", "error", err)
	}
	if err := n.motor.Close(); err != nil {
		log.Warn("motor close failed", "error", err)
	}
	if n.imu != nil {
		if err := n.imu.Close(); err != nil {
			log.Warn("imu close failed", "error", err)
		}
	}
	if err := n.disp.Close(); err != nil {
		log.Warn("display close failed", "error", err)
	}
	if err := n.bus.Close(); err != nil {
		log.Warn("bus close failed", "error", err)
	}
}

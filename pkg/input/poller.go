package input

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/timing"
)

// OpenButton opens a GPIO pin by name and configures it for an
// active-low button (pull-up, pressed when the line reads low).
func OpenButton(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure gpio pin %q: %w", name, err)
	}
	return pin, nil
}

// Poller samples the two buttons at a fixed rate and feeds the policy.
type Poller struct {
	pinA   gpio.PinIO
	pinB   gpio.PinIO
	debA   *Debouncer
	debB   *Debouncer
	policy *Policy
	pollHz float64
}

// PollerConfig sets up a poller.
type PollerConfig struct {
	PollMS      int64
	DebounceMS  int64
	LongPressMS int64
}

// NewPoller builds a poller over two opened pins.
func NewPoller(pinA, pinB gpio.PinIO, policy *Policy, cfg PollerConfig) *Poller {
	if cfg.PollMS <= 0 {
		cfg.PollMS = 10
	}
	return &Poller{
		pinA:   pinA,
		pinB:   pinB,
		debA:   NewDebouncer(cfg.DebounceMS, cfg.LongPressMS),
		debB:   NewDebouncer(cfg.DebounceMS, cfg.LongPressMS),
		policy: policy,
		pollHz: 1000.0 / float64(cfg.PollMS),
	}
}

// Run samples until the context is cancelled. It is meant to be run on
// its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	sleeper, err := timing.NewPeriodicSleeper(p.pollHz)
	if err != nil {
		log.Error("button poller misconfigured", "error", err)
		return
	}
	log.Info("button poller started", "hz", p.pollHz)
	for sleeper.Sleep(ctx) {
		now := timing.MonotonicMS()
		// Active-low: pressed when the line reads low.
		p.policy.HandleA(p.debA.Update(p.pinA.Read() == gpio.Low, now), now)
		p.policy.HandleB(p.debB.Update(p.pinB.Read() == gpio.Low, now), now)
	}
	log.Info("button poller stopped")
}

package node

import (
	"context"
	"fmt"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/protocol"
	"github.com/dmc-robo/go-mobility/pkg/timing"
	"github.com/dmc-robo/go-mobility/pkg/transport"
)

// RunHealth publishes a 1Hz uptime heartbeat on health/state until ctx
// is cancelled. It is the whole of the standalone health node.
func RunHealth(ctx context.Context, bus transport.Bus, robotID string) error {
	topic, err := protocol.HealthStateKey(robotID)
	if err != nil {
		return fmt.Errorf("health topic: %w", err)
	}
	sleeper, err := timing.NewPeriodicSleeper(1)
	if err != nil {
		return err
	}

	startMS := timing.MonotonicMS()
	log.Info("health node running", "robot_id", robotID, "topic", topic)
	for sleeper.Sleep(ctx) {
		state := protocol.HealthState{
			UptimeS: float64(timing.MonotonicMS()-startMS) / 1000.0,
			TSMS:    timing.WallClockMS(),
		}
		if err := transport.PublishJSON(bus, topic, state); err != nil {
			log.Warn("health publish failed", "error", err)
		}
	}
	log.Info("health node stopped")
	return nil
}

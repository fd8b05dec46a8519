package protocol

import (
	"fmt"
	"strings"
)

// KeyRoot is the namespace every robot's topics live under.
const KeyRoot = "dmc_robo"

func robotPrefix(robotID string) (string, error) {
	if robotID == "" || strings.Contains(robotID, "/") {
		return "", fmt.Errorf("robot_id must be non-empty and must not contain '/': %q", robotID)
	}
	return KeyRoot + "/" + robotID, nil
}

func key(robotID, suffix string) (string, error) {
	prefix, err := robotPrefix(robotID)
	if err != nil {
		return "", err
	}
	return prefix + "/" + suffix, nil
}

// MotorCmdKey returns the topic the node consumes motor commands from.
func MotorCmdKey(robotID string) (string, error) { return key(robotID, "motor/cmd") }

// MotorTelemetryKey returns the topic motor pulse-width echoes publish to.
func MotorTelemetryKey(robotID string) (string, error) { return key(robotID, "motor/telemetry") }

// OledCmdKey returns the topic for text display overrides.
func OledCmdKey(robotID string) (string, error) { return key(robotID, "oled/cmd") }

// OledImageMono1Key returns the topic for raw 1-bit bitmap overrides.
func OledImageMono1Key(robotID string) (string, error) { return key(robotID, "oled/image/mono1") }

// OledModeKey returns the topic for remote display-mode switches.
func OledModeKey(robotID string) (string, error) { return key(robotID, "oled/mode") }

// IMUStateKey returns the topic IMU samples publish to.
func IMUStateKey(robotID string) (string, error) { return key(robotID, "imu/state") }

// HealthStateKey returns the topic the heartbeat publishes to.
func HealthStateKey(robotID string) (string, error) { return key(robotID, "health/state") }

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RobotID != "robo01" {
		t.Fatalf("robot_id = %q", cfg.RobotID)
	}
	if cfg.Motor.DeadmanMS != 300 {
		t.Fatalf("deadman_ms = %d", cfg.Motor.DeadmanMS)
	}
	if cfg.OLED.Width != 128 || cfg.OLED.Height != 64 {
		t.Fatalf("oled size = %dx%d", cfg.OLED.Width, cfg.OLED.Height)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobility.yaml")
	data := []byte(`
robot_id: bench02
mqtt:
  broker: tcp://10.0.0.5:1883
motor:
  deadman_ms: 150
settings:
  cooldown_s: 30
  commands:
    git_pull: git pull --rebase
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RobotID != "bench02" {
		t.Fatalf("robot_id = %q", cfg.RobotID)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Fatalf("broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Motor.DeadmanMS != 150 {
		t.Fatalf("deadman_ms = %d", cfg.Motor.DeadmanMS)
	}
	if cfg.Settings.Commands["git_pull"] != "git pull --rebase" {
		t.Fatalf("commands = %v", cfg.Settings.Commands)
	}
	// Untouched sections keep their defaults.
	if cfg.Buttons.PollMS != 10 {
		t.Fatalf("poll_ms = %d", cfg.Buttons.PollMS)
	}
}

func TestMissingFileIsError(t *testing.T) {
	if _, err := Load("/nonexistent/mobility.yaml"); err == nil {
		t.Fatal("missing file did not error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROBOT_ID", "env03")
	t.Setenv("MQTT_BROKER", "tcp://broker.local:1883")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RobotID != "env03" {
		t.Fatalf("robot_id = %q", cfg.RobotID)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Fatalf("broker = %q", cfg.MQTT.Broker)
	}
}

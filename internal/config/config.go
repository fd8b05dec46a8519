// Package config loads the node's YAML configuration and applies
// environment overrides. Missing files and missing sections fall back
// to defaults; a config problem is never fatal past startup.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full node configuration.
type Config struct {
	RobotID  string         `yaml:"robot_id"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Motor    MotorConfig    `yaml:"motor"`
	IMU      IMUConfig      `yaml:"imu"`
	OLED     OLEDConfig     `yaml:"oled"`
	Buttons  ButtonsConfig  `yaml:"buttons"`
	Settings SettingsConfig `yaml:"settings"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// GPIOConfig names the two button lines (periph pin names, e.g.
// "GPIO17").
type GPIOConfig struct {
	SW1 string `yaml:"sw1"`
	SW2 string `yaml:"sw2"`
}

type MotorConfig struct {
	DeadmanMS   int     `yaml:"deadman_ms"`
	TelemetryHz float64 `yaml:"telemetry_hz"`
}

type IMUConfig struct {
	PublishHz float64 `yaml:"publish_hz"`
}

type OLEDConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	I2CBus    string  `yaml:"i2c_bus"`
	MaxHz     float64 `yaml:"max_hz"`
	OverrideS float64 `yaml:"override_s"`

	DefaultMode string `yaml:"default_mode"`

	BootImage  string `yaml:"boot_image"`
	MotorImage string `yaml:"motor_image"`

	WelcomeFramesDir string  `yaml:"welcome_frames_dir"`
	WelcomeFPS       float64 `yaml:"welcome_fps"`
	WelcomeLoop      bool    `yaml:"welcome_loop"`
	WelcomeOnBoot    bool    `yaml:"welcome_on_boot"`

	ModeSwitchFramesDir string  `yaml:"mode_switch_frames_dir"`
	ModeSwitchFPS       float64 `yaml:"mode_switch_fps"`

	EyesFramesDir string  `yaml:"eyes_frames_dir"`
	EyesFPS       float64 `yaml:"eyes_fps"`
}

type ButtonsConfig struct {
	Enabled     bool  `yaml:"enabled"`
	PollMS      int64 `yaml:"poll_ms"`
	DebounceMS  int64 `yaml:"debounce_ms"`
	LongPressMS int64 `yaml:"long_press_ms"`
}

type SettingsConfig struct {
	Enabled   bool    `yaml:"enabled"`
	CooldownS float64 `yaml:"cooldown_s"`

	WifiSSID     string `yaml:"wifi_ssid"`
	WifiPSKEnv   string `yaml:"wifi_psk_env"`
	BranchTarget string `yaml:"branch_target"`
	SudoCmd      string `yaml:"sudo_cmd"`

	// Commands overrides the command line per action name
	// (calib, wifi, git_pull, branch, shutdown, reboot).
	Commands map[string]string `yaml:"commands"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RobotID: "robo01",
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
		},
		GPIO: GPIOConfig{
			SW1: "GPIO17",
			SW2: "GPIO27",
		},
		Motor: MotorConfig{
			DeadmanMS:   300,
			TelemetryHz: 5,
		},
		IMU: IMUConfig{
			PublishHz: 10,
		},
		OLED: OLEDConfig{
			Width:         128,
			Height:        64,
			I2CBus:        "",
			MaxHz:         10,
			OverrideS:     3,
			DefaultMode:   "legacy",
			WelcomeFPS:    8,
			ModeSwitchFPS: 12,
			EyesFPS:       6,
		},
		Buttons: ButtonsConfig{
			Enabled:     true,
			PollMS:      10,
			DebounceMS:  50,
			LongPressMS: 600,
		},
		Settings: SettingsConfig{
			Enabled:    true,
			CooldownS:  5,
			WifiPSKEnv: "DMC_WIFI_PSK",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults plus env overrides; a missing or unreadable file is an
// error so a typoed --config path does not silently run on defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment overrides on top of file values.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ROBOT_ID")); v != "" {
		c.RobotID = v
	}
	if v := strings.TrimSpace(os.Getenv("MQTT_BROKER")); v != "" {
		c.MQTT.Broker = v
	}
}

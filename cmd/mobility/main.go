// Command mobility runs the supervisory control node for the wheeled
// base: motor command ingestion with a deadman stop, the OLED status
// display, button input and telemetry. The health subcommand runs the
// standalone heartbeat publisher.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/dmc-robo/go-mobility/internal/config"
	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/display"
	"github.com/dmc-robo/go-mobility/pkg/input"
	"github.com/dmc-robo/go-mobility/pkg/node"
	"github.com/dmc-robo/go-mobility/pkg/transport"
	"github.com/dmc-robo/go-mobility/pkg/ui"
)

func main() {
	app := cli.NewApp()
	app.Name = "mobility"
	app.Usage = "supervisory control node for the dmc mobility base"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML config file",
		},
		cli.StringFlag{
			Name:  "robot-id",
			Usage: "override the configured robot id",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log level (debug, info, warn, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "robot",
			Usage: "run the full control node",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "dry-run",
					Usage: "mock transport, display and motor; no hardware",
				},
				cli.BoolFlag{
					Name:  "log-all-cmd",
					Usage: "log every motor command instead of rate-limiting",
				},
			},
			Action: runRobot,
		},
		{
			Name:   "health",
			Usage:  "run the standalone 1Hz heartbeat publisher",
			Action: runHealth,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (config.Config, error) {
	log.Init(c.GlobalString("log-level"))
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	if id := c.GlobalString("robot-id"); id != "" {
		cfg.RobotID = id
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runRobot(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	dryRun := c.Bool("dry-run")

	bus, err := dialBus(cfg, dryRun)
	if err != nil {
		return err
	}

	opts := node.Options{
		Cfg:            cfg,
		Bus:            bus,
		Motor:          node.NewMockMotor(),
		Assets:         loadAssets(cfg.OLED),
		LogAllCommands: c.Bool("log-all-cmd"),
		DryRun:         dryRun,
	}

	if dryRun {
		opts.Display = display.NewMockDisplay()
		opts.IMU = node.NewMockIMU()
	} else {
		disp, err := display.NewSSD1306(display.SSD1306Opts{
			I2CBus: cfg.OLED.I2CBus,
			Width:  cfg.OLED.Width,
			Height: cfg.OLED.Height,
		})
		if err != nil {
			log.Warn("oled init failed, using mock display", "error", err)
			opts.Display = display.NewMockDisplay()
		} else {
			opts.Display = disp
		}
		opts.IMU = node.NewMockIMU()
		openButtons(cfg, &opts)
	}

	n, err := node.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return n.Run(ctx)
}

func runHealth(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	bus, err := dialBus(cfg, false)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return node.RunHealth(ctx, bus, cfg.RobotID)
}

func dialBus(cfg config.Config, dryRun bool) (transport.Bus, error) {
	if dryRun {
		log.Info("dry run: in-process bus")
		return transport.NewMockBus(), nil
	}
	bus, err := transport.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	return bus, nil
}

// openButtons opens the configured GPIO lines; a pin that fails to open
// disables the poller rather than the node.
func openButtons(cfg config.Config, opts *node.Options) {
	if !cfg.Buttons.Enabled {
		return
	}
	a, err := input.OpenButton(cfg.GPIO.SW1)
	if err != nil {
		log.Warn("button disabled", "pin", cfg.GPIO.SW1, "error", err)
		return
	}
	b, err := input.OpenButton(cfg.GPIO.SW2)
	if err != nil {
		log.Warn("button disabled", "pin", cfg.GPIO.SW2, "error", err)
		return
	}
	opts.ButtonA, opts.ButtonB = a, b
}

// loadAssets reads the configured artwork; anything missing just leaves
// the renderer on its text fallback.
func loadAssets(cfg config.OLEDConfig) ui.Assets {
	var assets ui.Assets

	loadImage := func(path, what string) []byte {
		if path == "" {
			return nil
		}
		buf, err := display.LoadAsset(path, cfg.Width, cfg.Height)
		if err != nil {
			log.Warn("asset unavailable", "what", what, "path", path, "error", err)
			return nil
		}
		return buf
	}
	loadSeq := func(dir string, fps float64, loop bool, what string) display.FrameSequence {
		if dir == "" {
			return display.FrameSequence{}
		}
		frames, err := display.LoadFramesDir(dir, cfg.Width, cfg.Height)
		if err != nil {
			log.Warn("asset unavailable", "what", what, "dir", dir, "error", err)
			return display.FrameSequence{}
		}
		return display.NewFrameSequence(frames, fps, loop)
	}

	assets.BootImage = loadImage(cfg.BootImage, "boot image")
	assets.MotorImage = loadImage(cfg.MotorImage, "motor image")
	assets.Welcome = loadSeq(cfg.WelcomeFramesDir, cfg.WelcomeFPS, cfg.WelcomeLoop, "welcome animation")
	assets.ModeSwitch = loadSeq(cfg.ModeSwitchFramesDir, cfg.ModeSwitchFPS, false, "mode switch animation")
	assets.Eyes = loadSeq(cfg.EyesFramesDir, cfg.EyesFPS, true, "idle animation")
	return assets
}

// Package actions runs the maintenance commands behind the settings
// menu: calibration, wifi reconnect, git update, branch switch,
// shutdown and reboot. Exactly one action runs at a time and a global
// cooldown separates completions from the next accepted trigger.
package actions

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/timing"
)

// Action names (config keys for command overrides).
const (
	ActionCalib    = "calib"
	ActionWifi     = "wifi"
	ActionGitPull  = "git_pull"
	ActionBranch   = "branch"
	ActionShutdown = "shutdown"
	ActionReboot   = "reboot"
)

type actionDef struct {
	name       string
	defaultCmd string
	privileged bool
}

// labelTable maps menu labels to actions. Labels are what the settings
// menu shows; names are what configs override.
var labelTable = map[string]actionDef{
	"CALIB":    {ActionCalib, "scripts/calibrate_motors.sh", false},
	"WIFI":     {ActionWifi, "scripts/wifi_connect.sh", true},
	"GIT PULL": {ActionGitPull, "git pull --ff-only", false},
	"BRANCH":   {ActionBranch, "scripts/switch_branch.sh", false},
	"SHUTDOWN": {ActionShutdown, "shutdown -h now", true},
	"REBOOT":   {ActionReboot, "reboot", true},
}

// Config sets up the runner.
type Config struct {
	Enabled    bool
	CooldownMS int64
	// DryRun resolves and logs the command without executing it.
	DryRun bool

	// WifiSSID is the network the wifi action joins. WifiPSKEnv names
	// the environment variable holding the passphrase; the secret itself
	// never passes through config files.
	WifiSSID   string
	WifiPSKEnv string

	// TargetBranch is what the branch action checks out.
	TargetBranch string

	// Sudo is the privilege-escalation prefix for privileged actions
	// when not running as root. Defaults to "sudo -n".
	Sudo string

	// Commands overrides the default command line per action name.
	Commands map[string]string
}

// Runner executes settings-menu actions. Triggers are non-blocking:
// the command runs on its own goroutine and concurrent or too-soon
// triggers are rejected.
type Runner struct {
	cfg Config

	mu         sync.Mutex
	running    string // name of the in-flight action, "" when idle
	lastDoneMS int64  // -1 until the first completion

	wg sync.WaitGroup
}

// NewRunner builds a runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Sudo == "" {
		cfg.Sudo = "sudo -n"
	}
	return &Runner{cfg: cfg, lastDoneMS: -1}
}

// Enabled reports whether triggers are accepted at all.
func (r *Runner) Enabled() bool { return r.cfg.Enabled }

// Busy reports whether an action is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running != ""
}

// Trigger starts an action by name (calib, wifi, ...). It returns
// false when the trigger is rejected: runner disabled, unknown action,
// an action already running, cooldown not elapsed, or a required
// parameter missing. A true return means the action was started (or,
// in dry-run, fully resolved).
func (r *Runner) Trigger(name string, nowMS int64) bool {
	for _, def := range labelTable {
		if def.name == name {
			return r.trigger(def, nowMS)
		}
	}
	log.Warn("unknown settings action", "action", name)
	return false
}

// TriggerItem starts the action behind a menu label, with the same
// acceptance rules as Trigger.
func (r *Runner) TriggerItem(label string, nowMS int64) bool {
	def, ok := labelTable[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		log.Warn("unknown settings menu item", "label", label)
		return false
	}
	return r.trigger(def, nowMS)
}

func (r *Runner) trigger(def actionDef, nowMS int64) bool {
	if !r.cfg.Enabled {
		log.Warn("settings actions disabled", "action", def.name)
		return false
	}

	cmdline, env, err := r.resolve(def)
	if err != "" {
		log.Warn("settings action rejected", "action", def.name, "reason", err)
		return false
	}

	r.mu.Lock()
	if r.running != "" {
		r.mu.Unlock()
		log.Warn("settings action rejected, another in flight", "action", def.name, "running", r.running)
		return false
	}
	if r.lastDoneMS >= 0 && nowMS-r.lastDoneMS < r.cfg.CooldownMS {
		remaining := r.cfg.CooldownMS - (nowMS - r.lastDoneMS)
		r.mu.Unlock()
		log.Warn("settings action rejected, cooling down", "action", def.name, "remaining_ms", remaining)
		return false
	}
	if r.cfg.DryRun {
		r.lastDoneMS = nowMS
		r.mu.Unlock()
		log.Info("dry-run settings action", "action", def.name, "cmd", strings.Join(cmdline, " "))
		return true
	}
	r.running = def.name
	r.mu.Unlock()

	log.Info("settings action started", "action", def.name, "cmd", strings.Join(cmdline, " "))
	r.wg.Add(1)
	go r.run(def.name, cmdline, env)
	return true
}

// resolve builds the argv and extra environment for an action. A
// non-empty second string is a rejection reason.
func (r *Runner) resolve(def actionDef) ([]string, map[string]string, string) {
	env := map[string]string{}
	switch def.name {
	case ActionWifi:
		if r.cfg.WifiSSID == "" {
			return nil, nil, "wifi ssid not configured"
		}
		if r.cfg.WifiPSKEnv == "" || os.Getenv(r.cfg.WifiPSKEnv) == "" {
			return nil, nil, "wifi passphrase env not set"
		}
		env["WIFI_SSID"] = r.cfg.WifiSSID
		env["WIFI_PSK"] = os.Getenv(r.cfg.WifiPSKEnv)
	case ActionBranch:
		if r.cfg.TargetBranch == "" {
			return nil, nil, "target branch not configured"
		}
		env["TARGET_BRANCH"] = r.cfg.TargetBranch
	}

	raw := def.defaultCmd
	if override, ok := r.cfg.Commands[def.name]; ok && strings.TrimSpace(override) != "" {
		raw = override
	}
	if def.privileged && os.Geteuid() != 0 {
		raw = r.cfg.Sudo + " " + raw
	}

	argv, err := shlex.Split(raw)
	if err != nil || len(argv) == 0 {
		return nil, nil, "unparseable command line"
	}
	return argv, env, ""
}

func (r *Runner) run(name string, argv []string, env map[string]string) {
	defer r.wg.Done()

	start := time.Now()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	out, err := cmd.CombinedOutput()

	r.mu.Lock()
	r.running = ""
	r.lastDoneMS = timing.MonotonicMS()
	r.mu.Unlock()

	if err != nil {
		log.Error("settings action failed", "action", name, "error", err, "output", strings.TrimSpace(string(out)), "duration", time.Since(start))
		return
	}
	log.Info("settings action done", "action", name, "duration", time.Since(start))
}

// Wait blocks until any in-flight action finishes. Called on shutdown.
func (r *Runner) Wait() { r.wg.Wait() }

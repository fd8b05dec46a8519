package actions

import (
	"testing"
	"time"
)

func dryRunner(cooldownMS int64) *Runner {
	return NewRunner(Config{
		Enabled:    true,
		CooldownMS: cooldownMS,
		DryRun:     true,
	})
}

func TestTriggerDisabled(t *testing.T) {
	r := NewRunner(Config{Enabled: false, DryRun: true})
	if r.TriggerItem("GIT PULL", 0) {
		t.Fatal("disabled runner accepted a trigger")
	}
}

func TestTriggerUnknownLabel(t *testing.T) {
	r := dryRunner(0)
	if r.TriggerItem("FORMAT DISK", 0) {
		t.Fatal("unknown label accepted")
	}
}

func TestTriggerByName(t *testing.T) {
	r := dryRunner(0)
	if !r.Trigger(ActionGitPull, 0) {
		t.Fatal("trigger by name rejected")
	}
	if r.Trigger("format_disk", 0) {
		t.Fatal("unknown action name accepted")
	}
}

func TestCooldown(t *testing.T) {
	r := dryRunner(5000)

	if !r.TriggerItem("GIT PULL", 1000) {
		t.Fatal("first trigger rejected")
	}
	if r.TriggerItem("GIT PULL", 3000) {
		t.Fatal("trigger inside cooldown accepted")
	}
	if !r.TriggerItem("CALIB", 6001) {
		t.Fatal("trigger after cooldown rejected")
	}
}

func TestNoCooldownBeforeFirstRun(t *testing.T) {
	// A fresh runner must accept immediately even at nowMS 0.
	r := dryRunner(60_000)
	if !r.TriggerItem("CALIB", 0) {
		t.Fatal("fresh runner rejected first trigger")
	}
}

func TestWifiRequiresParameters(t *testing.T) {
	r := NewRunner(Config{Enabled: true, DryRun: true, WifiPSKEnv: "TEST_WIFI_PSK"})
	if r.TriggerItem("WIFI", 0) {
		t.Fatal("wifi accepted without ssid")
	}

	r = NewRunner(Config{Enabled: true, DryRun: true, WifiSSID: "shopfloor", WifiPSKEnv: "TEST_WIFI_PSK"})
	if r.TriggerItem("WIFI", 0) {
		t.Fatal("wifi accepted without passphrase env")
	}

	t.Setenv("TEST_WIFI_PSK", "hunter2")
	if !r.TriggerItem("WIFI", 0) {
		t.Fatal("wifi rejected with ssid and passphrase present")
	}
}

func TestBranchRequiresTarget(t *testing.T) {
	r := NewRunner(Config{Enabled: true, DryRun: true})
	if r.TriggerItem("BRANCH", 0) {
		t.Fatal("branch accepted without target")
	}

	r = NewRunner(Config{Enabled: true, DryRun: true, TargetBranch: "main"})
	if !r.TriggerItem("BRANCH", 0) {
		t.Fatal("branch rejected with target configured")
	}
}

func TestSingleFlight(t *testing.T) {
	r := NewRunner(Config{
		Enabled: true,
		Commands: map[string]string{
			ActionCalib:   "sleep 0.2",
			ActionGitPull: "true",
		},
	})

	if !r.TriggerItem("CALIB", 0) {
		t.Fatal("first trigger rejected")
	}
	if r.TriggerItem("GIT PULL", 10) {
		t.Fatal("second trigger accepted while first in flight")
	}
	r.Wait()
	if r.Busy() {
		t.Fatal("runner still busy after Wait")
	}
}

func TestCommandOverride(t *testing.T) {
	r := NewRunner(Config{
		Enabled:  true,
		Commands: map[string]string{ActionGitPull: "true"},
	})
	if !r.TriggerItem("GIT PULL", 0) {
		t.Fatal("override command rejected")
	}
	r.Wait()

	// Give the completion goroutine's bookkeeping a moment, then the
	// runner must be idle again.
	time.Sleep(10 * time.Millisecond)
	if r.Busy() {
		t.Fatal("runner busy after completed action")
	}
}

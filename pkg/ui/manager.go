// Package ui implements the OLED mode state machine: the current
// display mode, timed mode-switch transitions, the welcome animation,
// and the settings menu cursor. Rendering happens on the node's render
// loop; mode switches arrive from the bus and from the buttons.
package ui

import (
	"strings"
	"sync"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/display"
	"github.com/dmc-robo/go-mobility/pkg/safety"
)

// Built-in mode names.
const (
	ModeLegacy   = "legacy"
	ModeWelcome  = "welcome"
	ModeDrive    = "drive"
	ModeSettings = "settings"
)

// DefaultSettingsItems is the maintenance menu shown in settings mode.
var DefaultSettingsItems = []string{"CALIB", "WIFI", "GIT PULL", "BRANCH", "SHUTDOWN", "REBOOT"}

// settingsPageSize is how many menu items fit on one settings page.
const settingsPageSize = 2

// Assets bundles the pre-rendered artwork the built-in modes use. Any
// of them may be empty; every renderer has a text fallback.
type Assets struct {
	BootImage  []byte
	MotorImage []byte
	Welcome    display.FrameSequence
	ModeSwitch display.FrameSequence
	Eyes       display.FrameSequence
}

// Config sets up the manager.
type Config struct {
	RobotID       string
	Width         int
	Height        int
	DefaultMode   string
	WelcomeOnBoot bool
	// SettingsItems overrides DefaultSettingsItems when non-nil.
	SettingsItems []string
}

// Manager is the display-mode state machine. All exported methods are
// safe for concurrent use; rendering itself happens outside the lock so
// a slow frame push cannot block command ingestion.
type Manager struct {
	disp    display.Display
	robotID string
	width   int
	height  int
	assets  Assets

	mu            sync.Mutex
	handlers      map[string]ModeHandler
	order         []string
	mode          string
	defaultMode   string
	settingsItems []string
	settingsIndex int

	switchActive  bool
	switchStartMS int64
	switchTarget  string

	welcomeStartMS  int64
	welcomeNextMode string
	eyesStartMS     int64

	lastNonSettings string
}

// NewManager builds the manager with the four built-in modes
// registered. nowMS seeds the welcome and idle-animation clocks.
func NewManager(disp display.Display, cfg Config, assets Assets, nowMS int64) *Manager {
	m := &Manager{
		disp:          disp,
		robotID:       cfg.RobotID,
		width:         cfg.Width,
		height:        cfg.Height,
		assets:        assets,
		handlers:      make(map[string]ModeHandler),
		settingsItems: cfg.SettingsItems,
		eyesStartMS:   nowMS,
	}
	if m.settingsItems == nil {
		m.settingsItems = DefaultSettingsItems
	}

	m.registerHandler(&legacyMode{m})
	m.registerHandler(&welcomeMode{m})
	m.registerHandler(&driveMode{m})
	m.registerHandler(&settingsMode{m})

	def := strings.ToLower(cfg.DefaultMode)
	if def == "" {
		def = ModeLegacy
	}
	if _, ok := m.handlers[def]; !ok {
		log.Warn("invalid default oled mode, using legacy", "mode", def)
		def = ModeLegacy
	}
	m.defaultMode = def
	m.mode = def
	m.welcomeNextMode = def
	m.lastNonSettings = def
	if m.lastNonSettings == ModeSettings {
		m.lastNonSettings = ModeLegacy
	}

	if m.mode == ModeWelcome {
		m.welcomeStartMS = nowMS
	}
	if !assets.Welcome.Empty() && cfg.WelcomeOnBoot {
		m.welcomeStartMS = nowMS
		m.welcomeNextMode = def
		m.mode = ModeWelcome
	}
	return m
}

// RegisterMode adds a custom mode at startup. Registration after the
// render loop starts is not supported.
func (m *Manager) RegisterMode(h ModeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerHandler(h)
}

// RegisterTemplateMode registers a placeholder mode that just shows its
// own name, for forward extensibility.
func (m *Manager) RegisterTemplateMode(name string) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		name = "custom"
	}
	m.RegisterMode(&TemplateMode{manager: m, name: name})
}

func (m *Manager) registerHandler(h ModeHandler) {
	name := h.Name()
	m.handlers[name] = h
	for _, existing := range m.order {
		if existing == name {
			return
		}
	}
	m.order = append(m.order, name)
}

// HasMode reports whether a mode name is registered.
func (m *Manager) HasMode(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[name]
	return ok
}

// Mode returns the committed current mode (the pre-switch mode while a
// transition is still playing).
func (m *Manager) Mode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// ListModes returns the cycle order.
func (m *Manager) ListModes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SetModeOrder restricts and reorders the button-cycle sequence.
// Unknown names are dropped; an empty result leaves the order unchanged.
func (m *Manager) SetModeOrder(order []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleaned := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := m.handlers[name]; ok {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	m.order = cleaned
}

// LastNonSettingsMode returns the mode that was current when settings
// was most recently entered from outside settings.
func (m *Manager) LastNonSettingsMode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastNonSettings
}

// SetModeOptions tweaks one SetMode call.
type SetModeOptions struct {
	// SettingsIndex positions the settings cursor along with the switch.
	SettingsIndex *int
	// NoTransition forces an immediate switch even when a transition
	// sequence is configured.
	NoTransition bool
}

// SetMode requests a switch to the named mode. With a transition
// sequence configured the commit is deferred until the animation
// completes; otherwise the switch is immediate. Unknown modes are
// logged and ignored.
func (m *Manager) SetMode(mode string, nowMS int64) {
	m.SetModeOpts(mode, nowMS, SetModeOptions{})
}

// SetModeOpts is SetMode with options.
func (m *Manager) SetModeOpts(mode string, nowMS int64, opts SetModeOptions) {
	mode = strings.ToLower(mode)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handlers[mode]; !ok {
		log.Warn("invalid oled mode", "mode", mode)
		return
	}
	if opts.SettingsIndex != nil && len(m.settingsItems) > 0 {
		m.settingsIndex = clamp(*opts.SettingsIndex, 0, len(m.settingsItems)-1)
	}
	if mode == ModeWelcome {
		m.welcomeStartMS = nowMS
		m.welcomeNextMode = m.defaultMode
	}
	if mode == ModeSettings && m.mode != ModeSettings {
		// Remember where to return to on a button-B long press. Only the
		// first entry from outside settings counts; re-requests while
		// already in (or transitioning to) settings keep the original.
		if !(m.switchActive && m.switchTarget == ModeSettings) {
			m.lastNonSettings = m.mode
		}
	}
	if !opts.NoTransition && !m.assets.ModeSwitch.Empty() && (mode != m.mode || m.switchActive) {
		m.switchActive = true
		m.switchStartMS = nowMS
		m.switchTarget = mode
		return
	}
	m.mode = mode
}

// CycleMode advances the mode by delta steps through the configured
// order, wrapping at both ends.
func (m *Manager) CycleMode(delta int, nowMS int64) {
	m.mu.Lock()
	if len(m.order) == 0 {
		m.mu.Unlock()
		return
	}
	idx := 0
	for i, name := range m.order {
		if name == m.mode {
			idx = i
			break
		}
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	next := m.order[((idx+step)%len(m.order)+len(m.order))%len(m.order)]
	m.mu.Unlock()

	m.SetMode(next, nowMS)
}

// StepSettingsIndex moves the menu cursor, clamped to the item range.
func (m *Manager) StepSettingsIndex(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.settingsItems) == 0 {
		return
	}
	m.settingsIndex = clamp(m.settingsIndex+delta, 0, len(m.settingsItems)-1)
}

// SettingsIndex returns the current menu cursor.
func (m *Manager) SettingsIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsIndex
}

// SettingsItem returns the selected menu label.
func (m *Manager) SettingsItem() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.settingsItems) == 0 {
		return "", false
	}
	return m.settingsItems[clamp(m.settingsIndex, 0, len(m.settingsItems)-1)], true
}

// Render draws one frame: an in-progress mode-switch transition first,
// otherwise the current mode's handler. motor is the atomic snapshot of
// the last motor command shared with the deadman monitor. Rendering
// failures are logged and skipped; they never desynchronize mode state.
func (m *Manager) Render(nowMS int64, motor safety.Snapshot) {
	m.mu.Lock()
	mode := m.mode
	switchActive := m.switchActive
	switchStartMS := m.switchStartMS
	switchTarget := m.switchTarget
	handler := m.handlers[mode]
	m.mu.Unlock()

	if switchActive && !m.assets.ModeSwitch.Empty() {
		m.renderSwitch(nowMS, switchStartMS, switchTarget)
		return
	}

	if handler == nil {
		log.Warn("oled mode handler missing", "mode", mode)
		handler = &legacyMode{m}
	}
	handler.Render(nowMS, motor)
}

// renderSwitch plays the transition animation and commits the target
// mode when the sequence completes.
func (m *Manager) renderSwitch(nowMS, startMS int64, target string) {
	frame, done := m.assets.ModeSwitch.FrameAt(nowMS, startMS)
	if frame != nil {
		lines := []string{"MODE", strings.ToUpper(target)}
		overlay, err := display.RenderTextOverlay(frame, m.width, m.height, lines, display.OverlayOptions{LineSpacing: 1})
		if err != nil {
			log.Warn("oled mode switch render failed", "error", err)
		} else if err := m.disp.ShowMono1(overlay); err != nil {
			log.Warn("oled mode switch render failed", "error", err)
		}
	} else if err := m.disp.ShowText("MODE"); err != nil {
		log.Warn("oled mode switch render failed", "error", err)
	}

	if !done {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// A newer SetMode restarts the transition; only the run we rendered
	// may commit.
	if !m.switchActive || m.switchStartMS != startMS {
		return
	}
	m.switchActive = false
	m.mode = target
	if target == ModeWelcome {
		m.welcomeStartMS = nowMS
		m.welcomeNextMode = m.defaultMode
	}
	m.switchTarget = ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

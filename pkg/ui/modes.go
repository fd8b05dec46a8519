package ui

import (
	"fmt"
	"strings"

	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/display"
	"github.com/dmc-robo/go-mobility/pkg/safety"
)

// ModeHandler renders one display mode. Handlers are registered at
// startup and dispatched by the manager's render loop; they must not
// call back into Render.
type ModeHandler interface {
	Name() string
	Render(nowMS int64, motor safety.Snapshot)
}

var (
	_ ModeHandler = (*legacyMode)(nil)
	_ ModeHandler = (*welcomeMode)(nil)
	_ ModeHandler = (*driveMode)(nil)
	_ ModeHandler = (*settingsMode)(nil)
	_ ModeHandler = (*TemplateMode)(nil)
)

// legacyMode mirrors the original status display: the motor image while
// a fresh command is driving the wheels, the boot image otherwise.
type legacyMode struct{ m *Manager }

func (h *legacyMode) Name() string { return ModeLegacy }

func (h *legacyMode) Render(nowMS int64, motor safety.Snapshot) {
	m := h.m
	driving := motor.OK && motor.Fresh(nowMS) && motor.Cmd.Moving()
	if driving {
		if len(m.assets.MotorImage) > 0 {
			h.show(m.assets.MotorImage)
			return
		}
		h.showText(fmt.Sprintf("%s\nMOTOR", m.robotID))
		return
	}
	if len(m.assets.BootImage) > 0 {
		h.show(m.assets.BootImage)
		return
	}
	h.showText("READY")
}

func (h *legacyMode) show(buf []byte) {
	if err := h.m.disp.ShowMono1(buf); err != nil {
		log.Warn("oled render failed", "mode", ModeLegacy, "error", err)
	}
}

func (h *legacyMode) showText(text string) {
	if err := h.m.disp.ShowText(text); err != nil {
		log.Warn("oled render failed", "mode", ModeLegacy, "error", err)
	}
}

// welcomeMode plays the boot animation once, then hands off to the
// configured default mode.
type welcomeMode struct{ m *Manager }

func (h *welcomeMode) Name() string { return ModeWelcome }

func (h *welcomeMode) Render(nowMS int64, motor safety.Snapshot) {
	m := h.m

	m.mu.Lock()
	startMS := m.welcomeStartMS
	next := m.welcomeNextMode
	m.mu.Unlock()

	frame, done := m.assets.Welcome.FrameAt(nowMS, startMS)
	if frame != nil {
		if err := m.disp.ShowMono1(frame); err != nil {
			log.Warn("oled render failed", "mode", ModeWelcome, "error", err)
		}
	} else if err := m.disp.ShowText("WELCOME"); err != nil {
		log.Warn("oled render failed", "mode", ModeWelcome, "error", err)
	}

	if done && !m.assets.Welcome.Empty() {
		if next == "" || next == ModeWelcome {
			next = ModeLegacy
		}
		m.SetMode(next, nowMS)
	}
}

// driveMode shows a looping idle animation with the live wheel
// velocities along the bottom edge.
type driveMode struct{ m *Manager }

func (h *driveMode) Name() string { return ModeDrive }

func (h *driveMode) Render(nowMS int64, motor safety.Snapshot) {
	m := h.m

	m.mu.Lock()
	eyesStartMS := m.eyesStartMS
	m.mu.Unlock()

	var vl, vr float64
	if motor.OK && motor.Fresh(nowMS) {
		vl, vr = motor.Cmd.VL, motor.Cmd.VR
	}
	status := fmt.Sprintf("L:%+.2f R:%+.2f", vl, vr)

	frame, _ := m.assets.Eyes.FrameAt(nowMS, eyesStartMS)
	if frame == nil {
		if err := m.disp.ShowText("DRIVE\n" + status); err != nil {
			log.Warn("oled render failed", "mode", ModeDrive, "error", err)
		}
		return
	}

	overlay, err := display.RenderTextOverlay(frame, m.width, m.height, []string{status}, display.OverlayOptions{
		OffsetY: m.height - 14,
	})
	if err != nil {
		log.Warn("oled render failed", "mode", ModeDrive, "error", err)
		return
	}
	if err := m.disp.ShowMono1(overlay); err != nil {
		log.Warn("oled render failed", "mode", ModeDrive, "error", err)
	}
}

// settingsMode renders the maintenance menu: a page of items with the
// selected one shown as an inverted bar.
type settingsMode struct{ m *Manager }

func (h *settingsMode) Name() string { return ModeSettings }

func (h *settingsMode) Render(nowMS int64, motor safety.Snapshot) {
	m := h.m

	m.mu.Lock()
	items := m.settingsItems
	idx := m.settingsIndex
	m.mu.Unlock()

	if len(items) == 0 {
		if err := m.disp.ShowText("SETTINGS\n(empty)"); err != nil {
			log.Warn("oled render failed", "mode", ModeSettings, "error", err)
		}
		return
	}

	idx = clamp(idx, 0, len(items)-1)
	page := idx / settingsPageSize
	start := page * settingsPageSize
	end := start + settingsPageSize
	if end > len(items) {
		end = len(items)
	}

	lines := make([]string, 0, settingsPageSize+1)
	lines = append(lines, fmt.Sprintf("SETTINGS %d/%d", idx+1, len(items)))
	lines = append(lines, items[start:end]...)

	buf, err := display.RenderMenuOverlay(lines, 1+(idx-start), m.width, m.height)
	if err != nil {
		log.Warn("oled render failed", "mode", ModeSettings, "error", err)
		return
	}
	if err := m.disp.ShowMono1(buf); err != nil {
		log.Warn("oled render failed", "mode", ModeSettings, "error", err)
	}
}

// TemplateMode is a minimal custom mode that just shows its own name.
// It exists so deployments can pad the cycle order with site-specific
// placeholders before real renderers land.
type TemplateMode struct {
	manager *Manager
	name    string
}

func (h *TemplateMode) Name() string { return h.name }

func (h *TemplateMode) Render(nowMS int64, motor safety.Snapshot) {
	if err := h.manager.disp.ShowText(strings.ToUpper(h.name)); err != nil {
		log.Warn("oled render failed", "mode", h.name, "error", err)
	}
}

package input

import (
	"github.com/dmc-robo/go-mobility/internal/log"
	"github.com/dmc-robo/go-mobility/pkg/ui"
)

// ModeController is the slice of the display mode machine the buttons
// drive.
type ModeController interface {
	Mode() string
	CycleMode(delta int, nowMS int64)
	SetMode(mode string, nowMS int64)
	StepSettingsIndex(delta int)
	SettingsItem() (string, bool)
	LastNonSettingsMode() string
}

// ActionTrigger starts a settings-menu action.
type ActionTrigger interface {
	TriggerItem(label string, nowMS int64) bool
}

var _ ModeController = (*ui.Manager)(nil)

// Policy maps classified button events onto mode and action commands.
//
// Button A navigates: short press steps forward (next mode, or next
// menu item in settings), long press steps backward. Button B selects:
// short press enters settings, or triggers the highlighted action when
// already there; long press leaves settings for the mode that was
// current when it was entered.
type Policy struct {
	modes   ModeController
	actions ActionTrigger
}

// NewPolicy builds the policy.
func NewPolicy(modes ModeController, actions ActionTrigger) *Policy {
	return &Policy{modes: modes, actions: actions}
}

// HandleA processes a button-A event.
func (p *Policy) HandleA(ev Event, nowMS int64) {
	if ev == EventNone {
		return
	}
	delta := 1
	if ev == EventLongPress {
		delta = -1
	}
	if p.modes.Mode() == ui.ModeSettings {
		p.modes.StepSettingsIndex(delta)
		return
	}
	p.modes.CycleMode(delta, nowMS)
}

// HandleB processes a button-B event.
func (p *Policy) HandleB(ev Event, nowMS int64) {
	switch ev {
	case EventShortPress:
		if p.modes.Mode() != ui.ModeSettings {
			p.modes.SetMode(ui.ModeSettings, nowMS)
			return
		}
		item, ok := p.modes.SettingsItem()
		if !ok {
			return
		}
		if p.actions == nil {
			log.Warn("settings action requested but no runner wired", "item", item)
			return
		}
		p.actions.TriggerItem(item, nowMS)
	case EventLongPress:
		if p.modes.Mode() == ui.ModeSettings {
			p.modes.SetMode(p.modes.LastNonSettingsMode(), nowMS)
		}
	}
}

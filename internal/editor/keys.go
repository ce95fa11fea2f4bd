package editor

import (
	"context"
	"fmt"
	"strings"
)

// Modifier is a bitmask of the modifier keys the router distinguishes.
type Modifier uint8

// Modifier values.
const (
	ModAlt Modifier = 1 << iota
	ModCtrl
	ModMeta
)

// NormalizeModifiers builds a modifier mask from individual key states.
func NormalizeModifiers(alt, ctrl, meta bool) Modifier {
	var mods Modifier
	if alt {
		mods |= ModAlt
	}
	if ctrl {
		mods |= ModCtrl
	}
	if meta {
		mods |= ModMeta
	}
	return mods
}

// String renders the mask the way key bindings are written.
func (m Modifier) String() string {
	parts := make([]string, 0, 3)
	if m&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if m&ModMeta != 0 {
		parts = append(parts, "meta")
	}
	return strings.Join(parts, "+")
}

// AcceleratorFor returns the platform accelerator: meta on darwin, ctrl elsewhere.
func AcceleratorFor(goos string) Modifier {
	if goos == "darwin" {
		return ModMeta
	}
	return ModCtrl
}

// ParseAccelerator resolves a configured accelerator name.
func ParseAccelerator(name, goos string) (Modifier, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "auto":
		return AcceleratorFor(goos), nil
	case "ctrl":
		return ModCtrl, nil
	case "meta", "super", "cmd":
		return ModMeta, nil
	case "alt":
		return ModAlt, nil
	default:
		return 0, fmt.Errorf("unknown accelerator %q", name)
	}
}

// Key names the keys the router handles.
type Key string

// Key values.
const (
	KeyUp    Key = "up"
	KeyDown  Key = "down"
	KeySpace Key = "space"
)

// KeyEvent is one key press with its modifiers.
type KeyEvent struct {
	Key  Key
	Mods Modifier
}

// Command names a routed editor command.
type Command string

// Command values.
const (
	CommandNone           Command = ""
	CommandToggleDisabled Command = "toggle-disabled"
	CommandMoveUp         Command = "move-up"
	CommandMoveDown       Command = "move-down"
)

// Routed reports what the router did with a key.
// Consumed keys must not reach any other handler.
type Routed struct {
	Command  Command
	Consumed bool
}

// Route dispatches a key press to a command.
func (e *Editor) Route(ctx context.Context, ev KeyEvent) (Routed, error) {
	mods := ev.Mods & (ModAlt | ModCtrl | ModMeta)
	switch {
	case ev.Key == KeySpace && mods == 0 && e.ColumnVisible(ColumnEnabled):
		return Routed{Command: CommandToggleDisabled}, e.ToggleDisabled(ctx)
	case ev.Key == KeyUp && mods == e.accelerator:
		return Routed{Command: CommandMoveUp, Consumed: true}, e.MoveUp(ctx)
	case ev.Key == KeyDown && mods == e.accelerator:
		return Routed{Command: CommandMoveDown, Consumed: true}, e.MoveDown(ctx)
	default:
		return Routed{}, nil
	}
}

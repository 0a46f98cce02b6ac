package hotkey

import (
	"fmt"
	"strings"
	"sync"

	"snapsqueeze/src/errs"
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCmd Modifier = 1 << iota
	ModAlt
	ModCtrl
	ModShift
)

func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

var modifierNames = []struct {
	name string
	mod  Modifier
}{
	{"cmd", ModCmd},
	{"alt", ModAlt},
	{"ctrl", ModCtrl},
	{"shift", ModShift},
}

// Binding is a registered global hotkey.
type Binding struct {
	KeyCode   uint16
	Modifiers Modifier
	Callback  func()
}

type bindingKey struct {
	code uint16
	mods Modifier
}

// Registry maps (key code, modifiers) to callbacks.
type Registry struct {
	mu       sync.RWMutex
	bindings map[bindingKey]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[bindingKey]Binding)}
}

// Register adds a binding. Registering the same combination twice fails
// with a hotkey-registration error.
func (r *Registry) Register(keyCode uint16, mods Modifier, callback func()) error {
	if callback == nil {
		return errs.New(errs.KindHotkeyRegistration, "register hotkey", fmt.Errorf("nil callback for key %d", keyCode))
	}
	k := bindingKey{keyCode, mods}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[k]; exists {
		return errs.New(errs.KindHotkeyRegistration, "register hotkey",
			fmt.Errorf("hotkey %s+%d already registered", mods, keyCode))
	}
	r.bindings[k] = Binding{KeyCode: keyCode, Modifiers: mods, Callback: callback}
	return nil
}

// Unregister removes a binding and reports whether it existed.
func (r *Registry) Unregister(keyCode uint16, mods Modifier) bool {
	k := bindingKey{keyCode, mods}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[k]; !ok {
		return false
	}
	delete(r.bindings, k)
	return true
}

// Lookup returns the binding for an exact combination.
func (r *Registry) Lookup(keyCode uint16, mods Modifier) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[bindingKey{keyCode, mods}]
	return b, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Combo is a parsed hotkey string.
type Combo struct {
	KeyCode   uint16
	Modifiers Modifier
}

// ParseCombo converts a hotkey string like "Cmd+Alt+4" into a key code and
// modifier mask for the current platform.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	var key string
	for _, name := range parseHotkey(s) {
		if mod, ok := modifierFor(name); ok {
			c.Modifiers |= mod
			continue
		}
		if key != "" {
			return Combo{}, fmt.Errorf("hotkey %q: more than one non-modifier key", s)
		}
		key = name
	}
	if key == "" {
		return Combo{}, fmt.Errorf("hotkey %q: missing key", s)
	}
	codes := keyNameToRawcodes(key)
	if len(codes) == 0 {
		return Combo{}, fmt.Errorf("hotkey %q: unknown key %q", s, key)
	}
	c.KeyCode = codes[0]
	return c, nil
}

func modifierFor(name string) (Modifier, bool) {
	for _, n := range modifierNames {
		if n.name == name {
			return n.mod, true
		}
	}
	return 0, false
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "option", "opt":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "command", "super":
			keys = append(keys, "cmd")
		default:
			// Regular key
			keys = append(keys, part)
		}
	}

	return keys
}

// modifierRawcodes returns the mask for a modifier rawcode, if it is one.
func modifierRawcodes(code uint16) (Modifier, bool) {
	for _, n := range modifierNames {
		for _, c := range keyNameToRawcodes(n.name) {
			if c == code {
				return n.mod, true
			}
		}
	}
	return 0, false
}

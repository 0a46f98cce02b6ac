package hotkey

import (
	"testing"

	gohook "github.com/robotn/gohook"

	"snapsqueeze/src/errs"
)

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Cmd+Alt+4", []string{"cmd", "alt", "4"}},
		{"Ctrl+Shift+O", []string{"ctrl", "shift", "o"}},
		{"Command+Option+S", []string{"cmd", "alt", "s"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Control + Shift + 5", []string{"ctrl", "shift", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseHotkey(%q) returned %v, expected %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseCombo(t *testing.T) {
	c, err := ParseCombo("Cmd+Alt+4")
	if err != nil {
		t.Fatalf("ParseCombo: %v", err)
	}
	if c.Modifiers != ModCmd|ModAlt {
		t.Errorf("modifiers = %s, want cmd+alt", c.Modifiers)
	}
	if want := keyNameToRawcodes("4")[0]; c.KeyCode != want {
		t.Errorf("key code = %d, want %d", c.KeyCode, want)
	}

	for _, bad := range []string{"", "Cmd+Alt", "Cmd+4+5", "Cmd+nosuchkey"} {
		if _, err := ParseCombo(bad); err == nil {
			t.Errorf("ParseCombo(%q) should fail", bad)
		}
	}
}

func TestModifierString(t *testing.T) {
	if got := (ModCmd | ModShift).String(); got != "cmd+shift" {
		t.Errorf("String() = %q", got)
	}
	if got := Modifier(0).String(); got != "" {
		t.Errorf("empty mask String() = %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func() {}

	if err := r.Register(21, ModCmd|ModAlt, noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(21, ModCmd, noop); err != nil {
		t.Fatalf("register with other modifiers: %v", err)
	}
	err := r.Register(21, ModCmd|ModAlt, noop)
	if !errs.IsKind(err, errs.KindHotkeyRegistration) {
		t.Errorf("duplicate register error = %v, want hotkey-registration", err)
	}
	if err := r.Register(1, 0, nil); !errs.IsKind(err, errs.KindHotkeyRegistration) {
		t.Errorf("nil callback error = %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	if _, ok := r.Lookup(21, ModCmd|ModAlt); !ok {
		t.Error("lookup failed")
	}
	if !r.Unregister(21, ModCmd|ModAlt) {
		t.Error("unregister should report an existing binding")
	}
	if r.Unregister(21, ModCmd|ModAlt) {
		t.Error("second unregister should report false")
	}
	if _, ok := r.Lookup(21, ModCmd|ModAlt); ok {
		t.Error("binding still present after unregister")
	}
}

func press(code uint16) gohook.Event   { return gohook.Event{Kind: gohook.KeyHold, Rawcode: code} }
func typed(code uint16) gohook.Event   { return gohook.Event{Kind: gohook.KeyDown, Rawcode: code} }
func release(code uint16) gohook.Event { return gohook.Event{Kind: gohook.KeyUp, Rawcode: code} }

func TestListenerProcess(t *testing.T) {
	l := NewListener(NewRegistry())
	fired := 0
	if _, err := l.Bind("Cmd+Shift+A", func() { fired++ }); err != nil {
		t.Fatalf("bind: %v", err)
	}
	cmd := keyNameToRawcodes("cmd")[0]
	rightShift := keyNameToRawcodes("shift")[1]
	a := keyNameToRawcodes("a")[0]

	l.Process(press(cmd))
	l.Process(press(rightShift))
	if !l.Process(press(a)) || fired != 1 {
		t.Fatalf("combination should fire once, fired=%d", fired)
	}
	if l.Process(typed(a)) {
		t.Error("typed event for the same keystroke should not fire again")
	}

	l.Process(release(a))
	if !l.Process(typed(a)) || fired != 2 {
		t.Errorf("second press should fire, fired=%d", fired)
	}

	l.Process(release(a))
	l.Process(release(rightShift))
	if l.Process(press(a)) {
		t.Error("missing modifier should not fire")
	}
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
}

func TestListenerBindRejectsDuplicates(t *testing.T) {
	l := NewListener(NewRegistry())
	if _, err := l.Bind("Cmd+Alt+4", func() {}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := l.Bind("Option+Command+4", func() {}); !errs.IsKind(err, errs.KindHotkeyRegistration) {
		t.Errorf("duplicate bind error = %v", err)
	}
}

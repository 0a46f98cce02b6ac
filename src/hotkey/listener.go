package hotkey

import (
	"log"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listener dispatches global key events to the registry.
type Listener struct {
	registry *Registry

	mu      sync.Mutex
	held    map[uint16]Modifier
	down    map[uint16]bool
	running bool
	stop    func()
}

func NewListener(r *Registry) *Listener {
	return &Listener{registry: r, held: make(map[uint16]Modifier), down: make(map[uint16]bool)}
}

// Bind parses combo and registers callback for it.
func (l *Listener) Bind(combo string, callback func()) (Combo, error) {
	c, err := ParseCombo(combo)
	if err != nil {
		return Combo{}, err
	}
	if err := l.registry.Register(c.KeyCode, c.Modifiers, callback); err != nil {
		return Combo{}, err
	}
	log.Printf("Hotkey registered: %s (key=%d mods=%s)", combo, c.KeyCode, c.Modifiers)
	return c, nil
}

// Start hooks the global keyboard. It returns immediately; events are
// processed on a background goroutine until Stop.
func (l *Listener) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stop = gohook.End
	l.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			l.Process(ev)
		}
		log.Printf("Hotkey event channel closed")
	}()
}

// Stop unhooks the keyboard.
func (l *Listener) Stop() {
	l.mu.Lock()
	stop := l.stop
	l.running = false
	l.stop = nil
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Process handles one hook event and reports whether it fired a binding.
// A key fires at most once per press; the hook may report both a typed and a
// pressed event for the same keystroke.
func (l *Listener) Process(ev gohook.Event) bool {
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
	case gohook.KeyUp:
		l.mu.Lock()
		delete(l.held, ev.Rawcode)
		delete(l.down, ev.Rawcode)
		l.mu.Unlock()
		return false
	default:
		return false
	}

	if mod, ok := modifierRawcodes(ev.Rawcode); ok {
		l.mu.Lock()
		l.held[ev.Rawcode] = mod
		l.mu.Unlock()
		return false
	}

	l.mu.Lock()
	if l.down[ev.Rawcode] {
		l.mu.Unlock()
		return false
	}
	l.down[ev.Rawcode] = true
	var mods Modifier
	for _, m := range l.held {
		mods |= m
	}
	l.mu.Unlock()

	b, ok := l.registry.Lookup(ev.Rawcode, mods)
	if !ok {
		return false
	}
	log.Printf("Hotkey activated: key=%d mods=%s", b.KeyCode, b.Modifiers)
	b.Callback()
	return true
}

package tray

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"snapsqueeze/src/compress"
)

const appName = "SnapSqueeze"

// Options wires menu actions. Callbacks run on the menu goroutine and must
// not block; the usual action is posting a message to the event loop.
type Options struct {
	Scale              float64
	Format             compress.Format
	Hotkey             string
	OnCapture          func()
	OnScale            func(scale float64)
	OnFormat           func(f compress.Format)
	OnStats            func()
	OnCheckPermissions func()
	OnQuit             func()
}

// ScaleChoices are the scale presets offered in the menu.
var ScaleChoices = []float64{0.25, 0.5, 0.75}

var (
	mu          sync.Mutex
	ready       bool
	tooltip     = appName
	aboutExtra  string
	aboutItem   *systray.MenuItem
	scaleItems  = map[float64]*systray.MenuItem{}
	formatItems = map[compress.Format]*systray.MenuItem{}
)

// Run shows the menu-bar item and blocks until Quit. It must be called
// from the main goroutine. onReady runs once the menu exists.
func Run(opts Options, onReady func()) {
	systray.Run(func() {
		build(opts)
		if onReady != nil {
			onReady()
		}
	}, func() {
		log.Printf("Tray exited")
	})
}

// Quit removes the menu-bar item and makes Run return.
func Quit() { systray.Quit() }

func build(opts Options) {
	icon := iconPNG()
	if runtime.GOOS == "windows" {
		icon = icoFromPNG(icon, iconSize)
	}
	systray.SetIcon(icon)

	mu.Lock()
	ready = true
	systray.SetTooltip(tooltip)
	mu.Unlock()

	captureTitle := "Capture & Compress"
	if opts.Hotkey != "" {
		captureTitle = fmt.Sprintf("Capture & Compress (%s)", opts.Hotkey)
	}
	mCapture := systray.AddMenuItem(captureTitle, "Select a region and copy it compressed")
	systray.AddSeparator()

	mScale := systray.AddMenuItem("Scale", "Output scale")
	mu.Lock()
	for _, s := range ScaleChoices {
		item := mScale.AddSubMenuItem(ScaleLabel(s), "")
		scaleItems[s] = item
		go forward(item.ClickedCh, func() {
			selectScale(s)
			if opts.OnScale != nil {
				opts.OnScale(s)
			}
		})
	}
	mu.Unlock()

	mFormat := systray.AddMenuItem("Format", "Output format")
	mu.Lock()
	for _, f := range compress.Formats {
		item := mFormat.AddSubMenuItem(f.String(), "")
		formatItems[f] = item
		go forward(item.ClickedCh, func() {
			selectFormat(f)
			if opts.OnFormat != nil {
				opts.OnFormat(f)
			}
		})
	}
	mu.Unlock()
	selectScale(opts.Scale)
	selectFormat(opts.Format)

	systray.AddSeparator()
	mStats := systray.AddMenuItem("Statistics", "Show compression statistics")
	mPerm := systray.AddMenuItem("Check Permissions", "Check screen recording permission")
	mu.Lock()
	aboutItem = systray.AddMenuItem(aboutTitle(), "")
	aboutItem.Disable()
	mu.Unlock()
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit "+appName)

	go forward(mCapture.ClickedCh, opts.OnCapture)
	go forward(mStats.ClickedCh, opts.OnStats)
	go forward(mPerm.ClickedCh, opts.OnCheckPermissions)
	go forward(mQuit.ClickedCh, func() {
		if opts.OnQuit != nil {
			opts.OnQuit()
		}
		systray.Quit()
	})
}

func forward(ch <-chan struct{}, fn func()) {
	for range ch {
		if fn != nil {
			fn()
		}
	}
}

// UpdateTooltip sets the hover text. Calls before the menu exists are
// applied once it does.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

// SetStatus shows a short status after the app name.
func SetStatus(status string) {
	UpdateTooltip(StatusText(status))
}

// StatusText renders the tooltip for a status.
func StatusText(status string) string {
	if status == "" || status == "idle" {
		return appName
	}
	return fmt.Sprintf("%s: %s...", appName, status)
}

// SetAboutExtra appends a detail line to the disabled about item.
func SetAboutExtra(extra string) {
	mu.Lock()
	defer mu.Unlock()
	aboutExtra = extra
	if aboutItem != nil {
		aboutItem.SetTitle(aboutTitle())
	}
}

func aboutTitle() string {
	if aboutExtra == "" {
		return appName
	}
	return appName + " (" + aboutExtra + ")"
}

// ScaleLabel renders a scale as a percentage.
func ScaleLabel(scale float64) string {
	return fmt.Sprintf("%.0f%%", scale*100)
}

// SelectScale moves the scale checkmark, for changes made outside the menu.
func SelectScale(scale float64) { selectScale(scale) }

// SelectFormat moves the format checkmark.
func SelectFormat(f compress.Format) { selectFormat(f) }

func selectScale(scale float64) {
	mu.Lock()
	defer mu.Unlock()
	for s, item := range scaleItems {
		if s == scale {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func selectFormat(f compress.Format) {
	mu.Lock()
	defer mu.Unlock()
	for k, item := range formatItems {
		if k == f {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

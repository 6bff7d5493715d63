package tray

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/wavescope/internal/app"
	"github.com/petems/wavescope/internal/audio"
	"github.com/petems/wavescope/internal/config"
	"github.com/petems/wavescope/internal/waveform"
)

const (
	// systray titles are not meant for 100 Hz updates
	minLevelInterval = 100 * time.Millisecond
	levelBarWidth    = 8
)

// meterBounds only needs a vertical extent for Polyline.Peak.
var meterBounds = waveform.Bounds{Width: 1, Height: 2}

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	log     zerolog.Logger
	icon    []byte

	mu     sync.Mutex
	status string
	level  float32

	// Menu items
	mDevices    *systray.MenuItem
	mRefresh    *systray.MenuItem
	mStop       *systray.MenuItem
	mCopy       *systray.MenuItem
	deviceItems map[string]*systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.setStatus("idle", "")
}

func (u *UI) SetCapturing(device string) {
	u.setStatus("capturing", device)
}

func (u *UI) SetError(message string) {
	u.setStatus("error", message)
}

func New(application *app.App, cfg *config.Config, version string, log zerolog.Logger) *UI {
	return &UI{
		app:         application,
		cfg:         cfg,
		version:     version,
		log:         log,
		icon:        config.LoadDecoration(cfg.BackgroundImage, log),
		status:      "idle",
		deviceItems: make(map[string]*systray.MenuItem),
	}
}

// Run blocks on the systray event loop until Quit is chosen or ctx is
// cancelled. It must be called from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	u.app.SetStatusUpdater(u)
	defer u.app.SetStatusUpdater(nil)
	if u.app.IsCapturing() {
		u.status = "capturing"
	}

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()

	systray.Run(func() { u.onReady(ctx) }, u.onExit)
	return nil
}

func (u *UI) onReady(ctx context.Context) {
	if len(u.icon) > 0 {
		systray.SetIcon(u.icon)
	}
	u.refreshTitle()
	systray.SetTooltip("wavescope " + u.version)

	// Build menu
	u.mDevices = systray.AddMenuItem("Select Device", "Choose an input device")
	u.buildDeviceMenu()
	u.mRefresh = systray.AddMenuItem("Refresh Devices", "Enumerate input devices again")

	systray.AddSeparator()
	u.mStop = systray.AddMenuItem("Stop Capture", "Stop the running capture")
	u.mStop.Disable()
	u.mCopy = systray.AddMenuItem("Copy Diagnostics", "Copy capture details to the clipboard")

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mQuit)
	go u.meterLoop(ctx)
}

func (u *UI) handleEvents(mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mRefresh.ClickedCh:
			u.buildDeviceMenu()
		case <-u.mStop.ClickedCh:
			u.app.StopActiveSession()
		case <-u.mCopy.ClickedCh:
			if err := clipboard.WriteAll(u.app.Diagnostics()); err != nil {
				u.log.Warn().Err(err).Msg("Failed to copy diagnostics")
			}
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// buildDeviceMenu syncs the submenu with the current device list. systray
// cannot remove items, so devices that went away are hidden.
func (u *UI) buildDeviceMenu() {
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	active := u.app.View().ActiveDevice.ID

	u.mu.Lock()
	defer u.mu.Unlock()

	present := make(map[string]bool, len(devices))
	for _, dev := range devices {
		present[dev.ID] = true
		if item, ok := u.deviceItems[dev.ID]; ok {
			item.Show()
			continue
		}

		item := u.mDevices.AddSubMenuItemCheckbox(deviceLabel(dev), dev.ID, dev.ID == active)
		u.deviceItems[dev.ID] = item
		go u.watchDevice(dev.ID, item)
	}

	for id, item := range u.deviceItems {
		if !present[id] {
			item.Hide()
		}
	}
}

func (u *UI) watchDevice(deviceID string, menuItem *systray.MenuItem) {
	for range menuItem.ClickedCh {
		if err := u.app.SelectDevice(deviceID); err != nil {
			u.log.Error().Err(err).Str("device", deviceID).Msg("Failed to select device")
			u.SetError(err.Error())
			continue
		}

		// Uncheck all other items
		u.mu.Lock()
		for id, itm := range u.deviceItems {
			if id != deviceID {
				itm.Uncheck()
			}
		}
		u.mu.Unlock()
		menuItem.Check()
	}
}

func (u *UI) meterLoop(ctx context.Context) {
	interval := max(u.cfg.TickInterval, minLevelInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			line, ok := u.app.PollLatestWaveform(meterBounds)
			if !ok {
				continue
			}
			u.mu.Lock()
			u.level = line.Peak(meterBounds)
			u.mu.Unlock()
			u.refreshTitle()
		}
	}
}

func (u *UI) onExit() {
	u.log.Info().Msg("Tray exited")
}

func (u *UI) setStatus(status, detail string) {
	u.mu.Lock()
	u.status = status
	u.level = 0
	u.mu.Unlock()

	if u.mStop != nil {
		if status == "capturing" {
			u.mStop.Enable()
		} else {
			u.mStop.Disable()
		}
	}
	if detail != "" {
		systray.SetTooltip(detail)
	}
	u.refreshTitle()
}

// refreshTitle sets the tray title with status emoji and level meter
func (u *UI) refreshTitle() {
	u.mu.Lock()
	status, level := u.status, u.level
	u.mu.Unlock()
	systray.SetTitle(title(status, level))
}

func title(status string, level float32) string {
	if status == "capturing" {
		return fmt.Sprintf("🎧 %s %s", emojiForStatus(status), levelBar(level, levelBarWidth))
	}
	return fmt.Sprintf("🎧 %s", emojiForStatus(status))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "capturing":
		return "🟢" // Green - stream running
	case "error":
		return "🔴" // Red - stream failed
	case "idle":
		return "⚪️" // White - no device
	default:
		return "⚪️"
	}
}

// levelBar draws level in [0, 1] as width cells.
func levelBar(level float32, width int) string {
	level = min(max(level, 0), 1)
	filled := int(level*float32(width) + 0.5)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}

func deviceLabel(d audio.Device) string {
	if d.Default {
		return d.Name + " (default)"
	}
	return d.Name
}

package tray

import (
	"fmt"

	"fyne.io/fyne/v2"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/core/timekeeper"
)

const menuTitle = "BlinkBreak"

// Tray is the part of desktop.App the manager drives.
type Tray interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnStart       func()
	OnTogglePause func()
	OnReset       func()
	OnSkipBreak   func()
	OnSelect      func(model.ActivityKind)
	OnPreferences func()
	OnQuit        func()
}

// Icons are shown while the cycle runs and while it is paused or idle.
type Icons struct {
	Active   fyne.Resource
	Inactive fyne.Resource
}

// Manager handles system tray state.
type Manager struct {
	tray      Tray
	icons     Icons
	callbacks Callbacks
	format    func(orchestrator.Status) string

	statusItem *fyne.MenuItem
	startItem  *fyne.MenuItem
	pauseItem  *fyne.MenuItem
	resetItem  *fyne.MenuItem
	skipItem   *fyne.MenuItem
	chooseItem *fyne.MenuItem
	prefsItem  *fyne.MenuItem
	quitItem   *fyne.MenuItem

	mode       timekeeper.Mode
	windowOpen bool
	label      string
}

// New creates a tray manager and installs its menu.
func New(tray Tray, icons Icons, callbacks Callbacks, formatStatus func(orchestrator.Status) string) *Manager {
	manager := &Manager{
		tray:      tray,
		icons:     icons,
		callbacks: callbacks,
		format:    formatStatus,
		mode:      timekeeper.ModeIdle,
	}
	if manager.format == nil {
		manager.format = func(status orchestrator.Status) string { return string(status.Mode) }
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true
	manager.startItem = fyne.NewMenuItem("Start", call(callbacks.OnStart))
	manager.pauseItem = fyne.NewMenuItem("Pause", call(callbacks.OnTogglePause))
	manager.resetItem = fyne.NewMenuItem("Reset", call(callbacks.OnReset))
	manager.skipItem = fyne.NewMenuItem("Skip break", call(callbacks.OnSkipBreak))
	manager.prefsItem = fyne.NewMenuItem("Preferences", call(callbacks.OnPreferences))
	manager.quitItem = fyne.NewMenuItem("Quit", call(callbacks.OnQuit))

	kinds := model.ActivityKinds()
	items := make([]*fyne.MenuItem, 0, len(kinds))
	for index, kind := range kinds {
		items = append(items, fyne.NewMenuItem(fmt.Sprintf("%d. %s", index+1, kind.Title()), func() {
			if manager.callbacks.OnSelect != nil {
				manager.callbacks.OnSelect(kind)
			}
		}))
	}
	manager.chooseItem = fyne.NewMenuItem("Choose activity", nil)
	manager.chooseItem.ChildMenu = fyne.NewMenu("", items...)

	manager.applyState()
	manager.refreshMenu()
	manager.refreshIcon()
	return manager
}

// Update reflects status in the menu. Call it on the fyne main goroutine.
func (manager *Manager) Update(status orchestrator.Status) {
	label := manager.format(status)
	windowOpen := status.WindowOpen && status.Activity.State != activity.StateIdle
	if label == manager.label && status.Mode == manager.mode && windowOpen == manager.windowOpen {
		return
	}
	iconChanged := (status.Mode == timekeeper.ModeWorking || status.Mode == timekeeper.ModeBreakReminder) !=
		(manager.mode == timekeeper.ModeWorking || manager.mode == timekeeper.ModeBreakReminder)

	manager.label = label
	manager.mode = status.Mode
	manager.windowOpen = windowOpen
	manager.applyState()
	manager.refreshMenu()
	if iconChanged {
		manager.refreshIcon()
	}
}

// StatusLabel returns the current status line.
func (manager *Manager) StatusLabel() string {
	return manager.statusItem.Label
}

// Menu returns the items in display order.
func (manager *Manager) Menu() []*fyne.MenuItem {
	return []*fyne.MenuItem{
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.startItem,
		manager.pauseItem,
		manager.resetItem,
		manager.skipItem,
		manager.chooseItem,
		fyne.NewMenuItemSeparator(),
		manager.prefsItem,
		manager.quitItem,
	}
}

func (manager *Manager) applyState() {
	if manager.label != "" {
		manager.statusItem.Label = "Status: " + manager.label
	}

	manager.startItem.Disabled = manager.mode != timekeeper.ModeIdle
	manager.resetItem.Disabled = manager.mode == timekeeper.ModeIdle

	manager.pauseItem.Disabled = manager.mode == timekeeper.ModeIdle
	if manager.mode == timekeeper.ModePaused {
		manager.pauseItem.Label = "Resume"
	} else {
		manager.pauseItem.Label = "Pause"
	}

	inBreak := manager.mode == timekeeper.ModeBreakReminder
	manager.skipItem.Disabled = !inBreak
	manager.chooseItem.Disabled = !inBreak || !manager.windowOpen
}

func (manager *Manager) refreshMenu() {
	if manager.tray != nil {
		manager.tray.SetSystemTrayMenu(fyne.NewMenu(menuTitle, manager.Menu()...))
	}
}

func (manager *Manager) refreshIcon() {
	if manager.tray == nil {
		return
	}
	icon := manager.icons.Inactive
	if manager.mode == timekeeper.ModeWorking || manager.mode == timekeeper.ModeBreakReminder {
		icon = manager.icons.Active
	}
	if icon != nil {
		manager.tray.SetSystemTrayIcon(icon)
	}
}

func call(fn func()) func() {
	return func() {
		if fn != nil {
			fn()
		}
	}
}

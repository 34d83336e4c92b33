// Package preferences is the settings editor of the tray application.
package preferences

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"blinkbreak/internal/storage"
)

// Window handles the preferences UI.
type Window struct {
	window   fyne.Window
	settings storage.Settings
	onSave   func(storage.Settings)

	workMinutes   *widget.Entry
	breakSeconds  *widget.Entry
	windowSeconds *widget.Entry
	historyDepth  *widget.Entry
	preferred     *widget.Select
	idleCheck     *widget.Check
	notifications *widget.Check
}

// New creates a preferences window.
func New(app fyne.App, settings storage.Settings, onSave func(storage.Settings)) *Window {
	window := app.NewWindow("BlinkBreak Settings")

	prefs := &Window{
		window:        window,
		onSave:        onSave,
		workMinutes:   widget.NewEntry(),
		breakSeconds:  widget.NewEntry(),
		windowSeconds: widget.NewEntry(),
		historyDepth:  widget.NewEntry(),
		preferred:     widget.NewSelect(ActivityChoices(), nil),
		idleCheck:     widget.NewCheck("Restart the work phase after 5 minutes away", nil),
		notifications: widget.NewCheck("Desktop notifications", nil),
	}
	prefs.UpdateSettings(settings)

	unit := func(text string) *widget.Label { return widget.NewLabel(text) }
	form := container.NewVBox(
		widget.NewLabelWithStyle("Cycle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Break every"), prefs.workMinutes, unit("min")),
		container.NewHBox(widget.NewLabel("Break length"), prefs.breakSeconds, unit("sec")),
		container.NewHBox(widget.NewLabel("Time to choose an activity"), prefs.windowSeconds, unit("sec")),
		widget.NewLabelWithStyle("Activities", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Preferred activity"), prefs.preferred),
		container.NewHBox(widget.NewLabel("Avoid repeating the last"), prefs.historyDepth, unit("activities")),
		prefs.idleCheck,
		prefs.notifications,
	)

	saveButton := widget.NewButton("Save", prefs.Save)
	cancelButton := widget.NewButton("Cancel", func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(460, 420))
	window.SetCloseIntercept(window.Hide)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings storage.Settings) {
	prefs.settings = settings
	form := FormFromSettings(settings)
	prefs.workMinutes.SetText(form.WorkMinutes)
	prefs.breakSeconds.SetText(form.BreakSeconds)
	prefs.windowSeconds.SetText(form.WindowSeconds)
	prefs.historyDepth.SetText(form.HistoryDepth)
	prefs.preferred.SetSelected(form.Preferred)
	prefs.idleCheck.SetChecked(form.IdleEnabled)
	prefs.notifications.SetChecked(form.Notifications)
}

// Save applies the form and hands the result to the save handler.
func (prefs *Window) Save() {
	form := Form{
		WorkMinutes:   prefs.workMinutes.Text,
		BreakSeconds:  prefs.breakSeconds.Text,
		WindowSeconds: prefs.windowSeconds.Text,
		HistoryDepth:  prefs.historyDepth.Text,
		Preferred:     prefs.preferred.Selected,
		IdleEnabled:   prefs.idleCheck.Checked,
		Notifications: prefs.notifications.Checked,
	}
	settings := form.Apply(prefs.settings)
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

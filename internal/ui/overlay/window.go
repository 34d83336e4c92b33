// Package overlay shows the break window: the remaining break time, the
// guided activity cue and buttons to choose an activity or skip.
package overlay

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/core/timekeeper"
	"blinkbreak/internal/host"
	"blinkbreak/internal/routine"
)

// Config defines overlay visuals.
type Config struct {
	Opacity    uint8
	Fullscreen bool
}

// DefaultConfig is a translucent centred window.
func DefaultConfig() Config {
	return Config{Opacity: 217}
}

// Window manages the overlay UI. Every method must run on the fyne main
// goroutine.
type Window struct {
	window     fyne.Window
	config     Config
	background *canvas.Rectangle

	titleLabel    *canvas.Text
	activityLabel *canvas.Text
	cueLabel      *canvas.Text
	timerLabel    *canvas.Text
	skipButton    *widget.Button
	choices       map[model.ActivityKind]*widget.Button

	onSkip   func()
	onSelect func(model.ActivityKind)

	shown bool
}

const (
	overlayWidthFraction  = float32(0.24)
	overlayHeightFraction = float32(0.28)
	defaultScreenWidth    = float32(1920)
	defaultScreenHeight   = float32(1080)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

var textColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// New creates a hidden overlay window.
func New(app fyne.App, config Config) *Window {
	window := app.NewWindow("BlinkBreak")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)

	overlay := &Window{
		window:        window,
		config:        config,
		background:    canvas.NewRectangle(color.NRGBA{A: config.Opacity}),
		titleLabel:    newText("Time to rest your eyes", 21, true),
		activityLabel: newText("", 17, true),
		cueLabel:      newText("", 15, false),
		timerLabel:    newText("--:--", 16, true),
		choices:       make(map[model.ActivityKind]*widget.Button),
	}
	overlay.timerLabel.Color = color.NRGBA{R: 232, G: 190, B: 66, A: 255}

	overlay.skipButton = widget.NewButton("Skip break", func() {
		if overlay.onSkip != nil {
			overlay.onSkip()
		}
	})

	buttons := make([]fyne.CanvasObject, 0, len(model.ActivityKinds())+1)
	for index, kind := range model.ActivityKinds() {
		button := widget.NewButton(fmt.Sprintf("%d  %s", index+1, kind.Title()), func() {
			if overlay.onSelect != nil {
				overlay.onSelect(kind)
			}
		})
		button.Disable()
		overlay.choices[kind] = button
		buttons = append(buttons, button)
	}
	buttons = append(buttons, overlay.skipButton)

	left := container.New(&leftPanelLayout{}, overlay.titleLabel, overlay.activityLabel, overlay.cueLabel, overlay.timerLabel)
	right := container.NewVBox(buttons...)
	content := container.NewPadded(container.NewGridWithColumns(2, left, right))
	window.SetContent(container.NewStack(overlay.background, content))
	return overlay
}

func newText(text string, size float32, bold bool) *canvas.Text {
	label := canvas.NewText(text, textColor)
	label.Alignment = fyne.TextAlignLeading
	label.TextStyle = fyne.TextStyle{Bold: bold}
	label.TextSize = size
	return label
}

// SetOnSkip sets the skip handler.
func (overlay *Window) SetOnSkip(handler func()) {
	overlay.onSkip = handler
}

// SetOnSelect sets the activity choice handler.
func (overlay *Window) SetOnSelect(handler func(model.ActivityKind)) {
	overlay.onSelect = handler
}

// Shown reports whether the overlay is visible.
func (overlay *Window) Shown() bool {
	return overlay.shown
}

// Update shows the overlay for a break and hides it otherwise.
func (overlay *Window) Update(status orchestrator.Status) {
	inBreak := status.Mode == timekeeper.ModeBreakReminder ||
		(status.Mode == timekeeper.ModePaused && status.Phase == model.PhaseBreak)
	if !inBreak {
		overlay.hide()
		return
	}

	setText(overlay.timerLabel, host.FormatRemaining(status.RemainingSeconds))
	if status.Mode == timekeeper.ModePaused {
		setText(overlay.titleLabel, "Break paused")
	} else {
		setText(overlay.titleLabel, "Time to rest your eyes")
	}

	snapshot := status.Activity
	if snapshot.Selected != "" && snapshot.State != activity.StateIdle {
		setText(overlay.activityLabel, snapshot.Selected.Title())
	} else {
		setText(overlay.activityLabel, "")
	}
	if snapshot.State == activity.StateCompleting || snapshot.State == activity.StateCompleted {
		setText(overlay.cueLabel, "done, well rested")
	}

	choosable := status.Mode == timekeeper.ModeBreakReminder && status.WindowOpen &&
		(snapshot.State == activity.StateLaunching || snapshot.State == activity.StateRunning)
	for kind, button := range overlay.choices {
		if choosable {
			button.Enable()
		} else {
			button.Disable()
		}
		importance := widget.MediumImportance
		if kind == snapshot.Selected && snapshot.State != activity.StateIdle {
			importance = widget.HighImportance
		}
		if button.Importance != importance {
			button.Importance = importance
			button.Refresh()
		}
	}

	if status.Mode == timekeeper.ModeBreakReminder {
		overlay.skipButton.Enable()
	} else {
		overlay.skipButton.Disable()
	}
	overlay.show()
}

// SetCue shows the routine step the user should follow.
func (overlay *Window) SetCue(_ model.ActivityKind, step routine.Step) {
	setText(overlay.cueLabel, step.Pose.Cue())
}

// CueText returns the cue currently shown.
func (overlay *Window) CueText() string {
	return overlay.cueLabel.Text
}

// UpdateConfig updates overlay visuals.
func (overlay *Window) UpdateConfig(config Config) {
	overlay.config = config
	overlay.background.FillColor = color.NRGBA{A: config.Opacity}
	canvas.Refresh(overlay.background)
	if overlay.shown {
		overlay.applyWindowMode()
	}
}

func (overlay *Window) show() {
	if overlay.shown {
		return
	}
	overlay.shown = true
	overlay.applyWindowMode()
	overlay.window.Show()
	overlay.window.RequestFocus()
}

func (overlay *Window) hide() {
	if !overlay.shown {
		return
	}
	overlay.shown = false
	setText(overlay.cueLabel, "")
	if overlay.config.Fullscreen {
		overlay.window.SetFullScreen(false)
	}
	overlay.window.Hide()
}

func setText(label *canvas.Text, text string) {
	if label.Text == text {
		return
	}
	label.Text = text
	label.Refresh()
}

func (overlay *Window) applyWindowMode() {
	if overlay.config.Fullscreen {
		overlay.window.SetFullScreen(true)
		return
	}
	overlay.window.SetFullScreen(false)
	overlay.resizeToScreenFraction()
}

func (overlay *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := overlay.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * overlayWidthFraction
	height := screenSize.Height * overlayHeightFraction
	minSize := overlay.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	overlay.window.Resize(fyne.NewSize(width, height))
	overlay.window.CenterOnScreen()
}

type leftPanelLayout struct{}

func (layout *leftPanelLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 4 {
		return
	}
	title, activityText, cue, timer := objects[0], objects[1], objects[2], objects[3]

	pad := size.Height * 0.05
	availableWidth := size.Width - pad*2
	if availableWidth < 0 {
		availableWidth = 0
	}

	y := pad
	for index, object := range []fyne.CanvasObject{title, activityText, cue} {
		objectSize := object.MinSize()
		object.Move(fyne.NewPos(pad, y))
		object.Resize(fyne.NewSize(availableWidth, objectSize.Height))
		y += objectSize.Height + float32(6+2*index)
	}

	timerSize := timer.MinSize()
	timerY := size.Height - pad - timerSize.Height
	if timerY < y {
		timerY = y
	}
	timer.Move(fyne.NewPos(pad, timerY))
	timer.Resize(timerSize)
}

func (layout *leftPanelLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var width, height float32
	for _, object := range objects {
		size := object.MinSize()
		if size.Width > width {
			width = size.Width
		}
		height += size.Height
	}
	return fyne.NewSize(width+20, height+40)
}

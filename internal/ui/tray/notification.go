package tray

import (
	"context"

	"fyne.io/fyne/v2"

	"blinkbreak/internal/notify"
)

// Notifier is the part of fyne.App that sends desktop notifications.
type Notifier interface {
	SendNotification(notification *fyne.Notification)
}

// NotificationSink delivers notifications through fyne.
type NotificationSink struct {
	App Notifier
}

// Notify implements notify.Sink.
func (sink NotificationSink) Notify(_ context.Context, notification notify.Notification) error {
	if sink.App == nil {
		return notify.ErrUnsupported
	}
	sink.App.SendNotification(fyne.NewNotification(notification.Title, notification.Body))
	return nil
}

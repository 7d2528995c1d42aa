package entity

import "time"

// NotificationLevel classifies a user-visible notification.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	// NotifyConfig is a configuration problem (missing column, missing credentials),
	// shown apart from transient store errors.
	NotifyConfig NotificationLevel = "config"
)

// Notification is a transient message for the dashboard operator.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

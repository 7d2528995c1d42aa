package dashboard

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// NotificationLog keeps the most recent notifications for the dashboard to poll.
type NotificationLog struct {
	mu    sync.Mutex
	items []entity.Notification
	limit int
}

func NewNotificationLog(limit int) *NotificationLog {
	if limit <= 0 {
		limit = 50
	}
	return &NotificationLog{limit: limit}
}

func (l *NotificationLog) Notify(n entity.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
	if over := len(l.items) - l.limit; over > 0 {
		l.items = append([]entity.Notification(nil), l.items[over:]...)
	}
}

// Recent returns notifications oldest first.
func (l *NotificationLog) Recent() []entity.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.Notification(nil), l.items...)
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(note entity.Notification) {
	fields := []zap.Field{zap.String("level", string(note.Level)), zap.String("message", note.Message)}
	if note.Level == entity.NotifySuccess {
		n.Logger.Info("notification", fields...)
		return
	}
	n.Logger.Warn("notification", fields...)
}

// MultiNotifier fans a notification out to every sink.
type MultiNotifier []usecase.Notifier

func (m MultiNotifier) Notify(n entity.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(n)
		}
	}
}

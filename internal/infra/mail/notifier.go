package mail

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// AlertNotifier mails error and configuration notifications. Success
// notifications are not mailed. Sending happens off the caller's goroutine.
type AlertNotifier struct {
	Sender *EmailSender
	To     string
	Table  string
	Logger *zap.Logger

	wg sync.WaitGroup
}

func NewAlertNotifier(sender *EmailSender, to, table string, logger *zap.Logger) *AlertNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertNotifier{Sender: sender, To: to, Table: table, Logger: logger}
}

func (n *AlertNotifier) Notify(note entity.Notification) {
	if note.Level == entity.NotifySuccess || n.To == "" || !n.Sender.Configured() {
		return
	}
	at := note.At
	if at.IsZero() {
		at = time.Now()
	}
	data := AlertEmailData{
		Level:   string(note.Level),
		Table:   n.Table,
		Message: note.Message,
		At:      at.UTC().Format(time.RFC3339),
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Sender.SendAlert(n.To, data); err != nil {
			n.Logger.Warn("alert email not sent", zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight emails finish.
func (n *AlertNotifier) Wait() {
	n.wg.Wait()
}

package mail

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

type recordingDialer struct {
	mu   sync.Mutex
	sent []*gomail.Message
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, m...)
	return nil
}

func newTestSender(d Dialer) *EmailSender {
	s := NewEmailSender("smtp.local", 25, "", "", "alerts@local")
	s.dialer = d
	return s
}

func TestAlertNotifier_MailsErrorsOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	dialer := &recordingDialer{}
	n := NewAlertNotifier(newTestSender(dialer), "ops@local", "hospitals", nil)

	n.Notify(entity.Notification{Level: entity.NotifySuccess, Message: "Hospital updated"})
	n.Notify(entity.Notification{Level: entity.NotifyError, Message: "Update failed: timeout", At: time.Unix(0, 0)})
	n.Notify(entity.Notification{Level: entity.NotifyConfig, Message: "Cold-email tracking is unavailable"})
	n.Wait()

	require.Len(t, dialer.sent, 2)
	var body bytes.Buffer
	for _, m := range dialer.sent {
		assert.Equal(t, []string{"ops@local"}, m.GetHeader("To"))
		_, err := m.WriteTo(&body)
		require.NoError(t, err)
	}
	assert.Contains(t, body.String(), "Update failed: timeout")
}

func TestAlertNotifier_Unconfigured(t *testing.T) {
	dialer := &recordingDialer{}
	sender := newTestSender(dialer)
	sender.Host = ""

	n := NewAlertNotifier(sender, "ops@local", "hospitals", nil)
	n.Notify(entity.Notification{Level: entity.NotifyError, Message: "x"})
	n.Wait()
	assert.Empty(t, dialer.sent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

package mail

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templates embed.FS

var alertTemplate = template.Must(template.ParseFS(templates, "templates/alert.html"))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

// Configured reports whether an SMTP host is set.
func (s *EmailSender) Configured() bool {
	return s != nil && s.Host != ""
}

func (s *EmailSender) SendAlert(to string, data AlertEmailData) error {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render alert email: %w", err)
	}

	from := s.From
	if from == "" {
		from = "no-reply@localhost"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("[hospitals] %s: %s", data.Level, truncate(data.Message, 60)))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

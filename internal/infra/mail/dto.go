package mail

type AlertEmailData struct {
	Level   string
	Table   string
	Message string
	At      string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	dialer   Dialer
}

package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends HTML mail through an SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host string, port int, user, pass string) *Mailer {
	return &Mailer{dialer: gomail.NewDialer(host, port, user, pass), from: user}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// NopMailer drops every message; used when SMTP_HOST is unset.
type NopMailer struct{}

func (NopMailer) Send(string, string, string) error { return nil }

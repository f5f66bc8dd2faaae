package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/openacademia/research-track-api/pkg/config"
)

// Sender delivers a single email message.
type Sender interface {
	Send(to, subject, bodyHTML string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// New builds an SMTPMailer from configuration.
func New(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

// Send delivers one HTML message. Callers treat delivery as best-effort.
func (m *SMTPMailer) Send(to, subject, bodyHTML string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient required")
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		bodyHTML,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Package mail sends transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/manukko/todos/internal/logging"
)

// seam for tests
var smtpSendMail = smtp.SendMail

type Mailer struct {
	addr string
	auth smtp.Auth
	from string
	log  logging.Logger
}

// NewMailer builds an SMTP mailer. user may be empty for unauthenticated
// relays such as a local test server.
func NewMailer(addr, user, password, from string, log logging.Logger) *Mailer {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &Mailer{addr: addr, auth: auth, from: from, log: log}
}

// Send delivers a plain-text message to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtpSendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		m.log.Error(ctx, "sending mail", "to", to, "error", err)
		return fmt.Errorf("sending mail: %w", err)
	}

	m.log.Info(ctx, "mail sent", "to", to, "subject", subject)
	return nil
}

// Package mailer is the transactional email transport adapter. The engine
// only sees the Send signature; everything SMTP-specific stays here.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/forumbase/notifyd/pkg/logger"
	"github.com/google/uuid"
)

// SMTPMailer sends notification emails over plain SMTP
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *logger.Logger
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(host string, port int, username, password, from string, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		log:      log,
	}
}

// Send builds an email from the template kind and payload and hands it to
// the SMTP server. The context deadline is checked before dialing; net/smtp
// itself is not cancellable mid-send.
func (m *SMTPMailer) Send(ctx context.Context, template string, to string, payload map[string]interface{}) error {
	if to == "" {
		return fmt.Errorf("mailer: empty recipient address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, _ := payload["subject"].(string)
	if subject == "" {
		subject = "New notification"
	}
	body, _ := payload["body"].(string)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", uuid.NewString(), m.host)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "X-Template: %s\r\n", template)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mailer: send to %s failed: %w", to, err)
	}
	m.log.WithField("to", to).Debug("notification email sent")
	return nil
}

package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers the HTML rendering over SMTP with STARTTLS. Email is
// the primary channel: the dispatcher's overall success tracks it.
type EmailSender struct {
	host     string
	port     int
	from     string
	password string
	to       []string
}

func NewEmailSender(host string, port int, from, password string, to []string) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		to:       to,
	}
}

func (e *EmailSender) Send(ctx context.Context, content Content) error {
	if len(e.to) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", content.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(content.HTML)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.from, e.password, e.host)
	if err := smtp.SendMail(addr, auth, e.from, e.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("email: send to %d recipients: %w", len(e.to), err)
	}
	return nil
}

func (e *EmailSender) Name() string {
	return "email"
}

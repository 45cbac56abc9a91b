package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
)

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp host is not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain text e-mails via SMTP.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	sender   string
	send     sendFunc
}

func NewSMTPMailer(cfg config.Mail) *SMTPMailer {
	sender := strings.TrimSpace(cfg.Sender)
	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}
	return &SMTPMailer{
		host:     strings.TrimSpace(cfg.Host),
		port:     strings.TrimSpace(cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		sender:   sender,
		send:     smtp.SendMail,
	}
}

// Configured reports whether a relay host is set.
func (m *SMTPMailer) Configured() bool {
	return m.host != ""
}

// Send delivers one message to all recipients.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" && m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, strings.Join(to, ", "), subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(addr, auth, m.sender, to, msg); err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] Email sent to %d recipient(s) via %s", len(to), addr)
	return nil
}

package contact

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// SMTPConfig holds the mailbox used when no hosted relay is configured.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Configured reports whether credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.User != "" && c.Pass != ""
}

// SMTPRelay mails the draft straight to the site owner.
type SMTPRelay struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPRelay(cfg SMTPConfig, logger *zap.Logger) *SMTPRelay {
	return &SMTPRelay{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Send composes a plain-text mail and hands it to the SMTP server. smtp.SendMail
// does not take a context, so ctx is only checked before dialing.
func (r *SMTPRelay) Send(ctx context.Context, d Draft) error {
	if !r.cfg.Configured() {
		return &ServerError{}
	}
	if err := ctx.Err(); err != nil {
		return &NetworkError{Err: err}
	}

	subject := fmt.Sprintf("Portfolio Contact: %s", headerValue(d.Subject))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Subject: %s
Message:
%s

---
Sent from your portfolio contact form
`, d.Name, d.Email, d.Subject, d.Message)

	msg := []byte("To: " + r.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + r.cfg.User + "\r\n" +
		"Reply-To: " + headerValue(d.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", r.cfg.User, r.cfg.Pass, r.cfg.Host)
	addr := net.JoinHostPort(r.cfg.Host, r.cfg.Port)

	if err := r.send(addr, auth, r.cfg.User, []string{r.cfg.To}, msg); err != nil {
		r.logger.Error("Error sending contact email", zap.String("addr", addr), zap.Error(err))
		return &NetworkError{Err: err}
	}

	r.logger.Info("Contact email sent", zap.String("name", d.Name), zap.String("email", d.Email))
	return nil
}

// headerValue folds visitor input onto one line so it cannot start a new
// header.
func headerValue(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

// Package notify is the fire-and-forget notification sink. Delivery
// failures are logged and counted, never surfaced to ledger operations.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/metrics"
	"go.uber.org/zap"
)

type Notifier interface {
	// Notify attempts delivery and reports success. It never returns an
	// error; callers must not let delivery outcome affect ledger state.
	Notify(ctx context.Context, to, subject, body string) bool
}

// SMTPNotifier delivers plain-text mail over SMTP.
type SMTPNotifier struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
	Host     string
}

func NewSMTPNotifier(host string, port int, from, username, password string) *SMTPNotifier {
	return &SMTPNotifier{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		From:     from,
		Username: username,
		Password: password,
		Host:     host,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, to, subject, body string) bool {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.From, to, subject, body)

	var auth smtp.Auth
	if n.Username != "" {
		auth = smtp.PlainAuth("", n.Username, n.Password, n.Host)
	}

	if err := smtp.SendMail(n.Addr, auth, n.From, []string{to}, []byte(msg)); err != nil {
		metrics.NotificationFailures.Inc()
		logger.Log.Warn("notification delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return false
	}
	return true
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used in development and tests.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, to, subject, body string) bool {
	logger.Log.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject))
	return true
}

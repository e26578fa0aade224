package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMTPConfig holds relay settings for the email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPDispatcher delivers messages through an SMTP relay.
type SMTPDispatcher struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPDispatcher creates an email dispatcher.
func NewSMTPDispatcher(cfg SMTPConfig, logger *zap.Logger) *SMTPDispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPDispatcher{cfg: cfg, logger: logger}
}

// Send delivers one message to one recipient. The context deadline is capped
// by the configured send timeout.
func (d *SMTPDispatcher) Send(ctx context.Context, recipient string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	payload := d.buildPayload(recipient, msg)

	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if d.cfg.Username != "" {
			auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
		}
		done <- smtp.SendMail(addr, auth, d.cfg.From, []string{recipient}, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			d.logger.Error("Failed to send email",
				zap.String("recipient", recipient),
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return fmt.Errorf("failed to send email to %s: %w", recipient, err)
		}
		d.logger.Info("Email sent",
			zap.String("recipient", recipient),
			zap.String("subject", msg.Subject))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send to %s timed out: %w", recipient, ctx.Err())
	}
}

func (d *SMTPDispatcher) buildPayload(recipient string, msg Message) []byte {
	from := d.cfg.From
	if d.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", d.cfg.FromName, d.cfg.From)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

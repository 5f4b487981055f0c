package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tanguc/vobotty/internal/runner"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("vobotty/notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.Recipients) > 0
}

func (c SmtpConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Port <= 0 {
		return fmt.Errorf("smtp: port is required")
	}
	if c.EmailAddress == "" {
		return fmt.Errorf("smtp: email_address is required")
	}
	return nil
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

// Email mails a run summary to the configured recipients.
type Email struct {
	config SmtpConfig
	send   sendFunc
}

func NewEmail(config SmtpConfig) Email {
	return Email{
		config: config,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func subject(summary runner.Summary) string {
	return fmt.Sprintf(
		"[vobotty] %s: %d ok, %d failed, %d skipped",
		summary.Site, summary.Succeeded(), summary.Failed(), len(summary.Skipped),
	)
}

func body(summary runner.Summary) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "Run %s started at %s.\n\n", summary.RunID, summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	runner.RenderSummary(&out, summary)
	return out.Bytes()
}

// Notify sends the summary, it does nothing when SMTP is not configured.
func (e Email) Notify(ctx context.Context, summary runner.Summary) error {
	if !e.config.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "email:Notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("vobotty <%s>", e.config.EmailAddress)
	mail.To = e.config.Recipients
	mail.Subject = subject(summary)
	mail.Text = body(summary)

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := e.send(
		mail, addr,
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send summary email: %w", err)
	}
	return nil
}

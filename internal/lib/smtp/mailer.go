package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

// Mailer отправляет письма одной SMTP-сессией на письмо.
type Mailer struct {
	transport TransportInterface
	log       *slog.Logger
}

// NewMailer создаёт Mailer поверх транспорта.
func NewMailer(transport TransportInterface, log *slog.Logger) *Mailer {
	return &Mailer{transport: transport, log: log}
}

// Send отправляет письмо всем получателям из email.To.
func (m *Mailer) Send(ctx context.Context, email models.Email) error {
	const op = "smtp.Send"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(email.To) == 0 {
		return nil
	}

	from := m.transport.GetSMTPUser()
	msg := buildMessage(from, email)

	client, err := m.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		m.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, addr := range email.To {
		if err := client.Rcpt(addr); err != nil {
			m.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Debug("email sent", slog.Int("recipients", len(email.To)), slog.String("subject", email.Subject))
	return nil
}

// buildMessage собирает письмо. Получатели скрыты: в To указан только
// отправитель, адреса передаются через RCPT.
func buildMessage(from string, email models.Email) string {
	return strings.Join([]string{
		"From: " + from,
		"To: " + from,
		"Subject: " + mime.QEncoding.Encode("utf-8", email.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		email.Body,
	}, "\r\n")
}

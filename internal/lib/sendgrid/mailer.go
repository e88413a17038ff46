// Package sendgrid отправляет письма через HTTP API SendGrid.
package sendgrid

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

const endpoint = "/v3/mail/send"

// Mailer отправляет одно письмо на вызов, получатели скрыты друг от друга
// отдельными персонализациями.
type Mailer struct {
	key  string
	host string
	from *sgmail.Email
	log  *slog.Logger
}

// NewMailer создаёт Mailer из config.Email.
func NewMailer(cfg config.Email, log *slog.Logger) *Mailer {
	return &Mailer{
		key:  cfg.SendGridAPIKey,
		host: cfg.SendGridHost,
		from: sgmail.NewEmail(cfg.EmailFromName, cfg.EmailFrom),
		log:  log,
	}
}

func (m *Mailer) prepare(email models.Email) *sgmail.SGMailV3 {
	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	for _, to := range email.To {
		p := sgmail.NewPersonalization()
		p.Subject = email.Subject
		p.AddTos(sgmail.NewEmail("", to))
		msg.AddPersonalizations(p)
	}
	msg.AddContent(sgmail.NewContent("text/plain", email.Body))
	return msg
}

// Send отправляет письмо. Ответ со статусом 4xx или 5xx считается ошибкой.
func (m *Mailer) Send(ctx context.Context, email models.Email) error {
	const op = "sendgrid.Send"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(email.To) == 0 {
		return nil
	}

	req := sendgrid.GetRequest(m.key, endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(email))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.log.Error("sendgrid rejected message", slog.Int("status", res.StatusCode), slog.String("body", res.Body))
		return fmt.Errorf("%s: unexpected status %d", op, res.StatusCode)
	}

	m.log.Debug("email sent", slog.Int("recipients", len(email.To)), slog.String("subject", email.Subject))
	return nil
}

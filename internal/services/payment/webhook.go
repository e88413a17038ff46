package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/lms-platform/internal/models"
	"github.com/magabrotheeeer/lms-platform/internal/paymentprovider"
)

// HandleWebhook проверяет подпись события шлюза и проводит оплаченную
// сессию. Прочие события и неизвестные сессии подтверждаются без изменений.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "payment.HandleWebhook"
	event, err := paymentprovider.ConstructEvent(payload, signature, s.webhookSecret, paymentprovider.DefaultTolerance, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))
	if event.Type != paymentprovider.EventCheckoutCompleted {
		log.Debug("webhook event ignored")
		return nil
	}

	session, err := event.Session()
	if err != nil {
		return fmt.Errorf("%s: %w", op, models.NewValidationError("data", "malformed checkout session"))
	}
	if session.ID == "" {
		return fmt.Errorf("%s: %w", op, models.NewValidationError("data", "checkout session has no id"))
	}

	p, err := s.repo.SettleGatewayPayment(ctx, session.ID)
	if errors.Is(err, models.ErrNotFound) {
		log.Warn("no payment for checkout session", slog.String("session_id", session.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("payment settled",
		slog.Int64("payment_id", p.ID),
		slog.Int64("user_id", p.UserID),
		slog.String("session_id", session.ID),
	)
	return nil
}

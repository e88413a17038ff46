package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
)

const prefetch = 10

// ErrDrop помечает сообщение, которое не стоит возвращать в очередь:
// повторная доставка закончится той же ошибкой.
var ErrDrop = errors.New("drop message")

// ConsumerMessage запускает обработку очереди queueName, не более prefetch
// сообщений одновременно. Успех подтверждается Ack, ошибка возвращает
// сообщение в очередь, ErrDrop отбрасывает его.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("queue", queueName))
	sem := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						requeue := !errors.Is(err, ErrDrop)
						log.Error("failed to handle message", sl.Err(err), slog.Bool("requeue", requeue))
						if nackErr := d.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

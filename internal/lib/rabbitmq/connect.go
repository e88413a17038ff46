// Package rabbitmq публикует и потребляет задания на отправку писем через
// direct-обменник RabbitMQ.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытку retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for i, n := 0, max(retries, 1); i < n; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// ErrConnectionClosed соединение с брокером закрыто.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// Health проверка соединения для /health.
type Health struct {
	Conn *amqp.Connection
}

// Ping возвращает ErrConnectionClosed, если соединение потеряно.
func (h Health) Ping(_ context.Context) error {
	if h.Conn == nil || h.Conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

// Package smtp отправляет письма через SMTP-сервер с STARTTLS.
package smtp

import "io"

// Client подмножество *smtp.Client, нужное для отправки письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает авторизованную SMTP-сессию.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}

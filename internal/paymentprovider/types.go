package paymentprovider

import (
	"encoding/json"
	"fmt"
)

// ProductParams параметры создания товара.
type ProductParams struct {
	Name        string
	Description string
	Metadata    map[string]string
}

// Product товар в шлюзе.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PriceParams параметры разовой цены товара в минимальных единицах валюты.
type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
	Metadata   map[string]string
}

// Price цена товара в шлюзе.
type Price struct {
	ID         string `json:"id"`
	Product    string `json:"product"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// SessionParams параметры сессии оплаты одной позиции.
type SessionParams struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// Session сессия оплаты. URL ведёт на страницу оплаты шлюза.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// Типы событий webhook, которые обрабатывает LMS.
const (
	EventCheckoutCompleted = "checkout.session.completed"
)

// Event событие webhook. Data.Object зависит от Type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Session разбирает объект события как сессию оплаты.
func (e *Event) Session() (*Session, error) {
	var s Session
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, fmt.Errorf("paymentprovider.Session: %w", err)
	}
	return &s, nil
}

// APIError ошибка, которую вернул шлюз.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

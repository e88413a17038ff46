// Package paymentprovider клиент платёжного шлюза с REST API в стиле Stripe:
// товары, цены, сессии оплаты и проверка подписи webhook.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/metrics"
)

// ErrUnavailable шлюз временно недоступен, автомат разомкнут.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client обращается к шлюзу через автомат отключения.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        *slog.Logger
}

// NewClient создаёт клиент шлюза.
func NewClient(cfg config.PaymentGateway, log *slog.Logger) *Client {
	c := &Client{
		secretKey:  cfg.GatewaySecretKey,
		apiURL:     strings.TrimRight(cfg.GatewayAPIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.GatewayTimeout},
		log:        log,
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.GatewayBreakerState.Set(float64(to))
		},
	})
	return c
}

// CreateProduct заводит товар.
func (c *Client) CreateProduct(ctx context.Context, params ProductParams) (*Product, error) {
	const op = "paymentprovider.CreateProduct"
	form := url.Values{}
	form.Set("name", params.Name)
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	setMetadata(form, params.Metadata)

	var product Product
	if err := c.post(ctx, "/v1/products", form, &product); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}

// CreatePrice заводит разовую цену товара.
func (c *Client) CreatePrice(ctx context.Context, params PriceParams) (*Price, error) {
	const op = "paymentprovider.CreatePrice"
	form := url.Values{}
	form.Set("product", params.ProductID)
	form.Set("unit_amount", fmt.Sprintf("%d", params.UnitAmount))
	form.Set("currency", params.Currency)
	setMetadata(form, params.Metadata)

	var price Price
	if err := c.post(ctx, "/v1/prices", form, &price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &price, nil
}

// CreateCheckoutSession создаёт сессию оплаты картой на одну позицию.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	setMetadata(form, params.Metadata)

	var session Session
	if err := c.post(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, form)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return body, nil
}

func setMetadata(form url.Values, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", metadata[k])
	}
}

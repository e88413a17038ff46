package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader заголовок с подписью webhook.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance допустимое расхождение метки времени подписи.
const DefaultTolerance = 5 * time.Minute

// ErrInvalidSignature подпись отсутствует, не совпала или устарела.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign строит значение заголовка подписи для payload.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + computeSignature(payload, secret, ts)
}

// ConstructEvent проверяет подпись вида "t=...,v1=..." и разбирает событие.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	const op = "paymentprovider.ConstructEvent"
	if secret == "" || header == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	var ts string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if ts == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}
	if age := now.Sub(time.Unix(unix, 0)); age > tolerance || age < -tolerance {
		return nil, fmt.Errorf("%s: %w: timestamp outside tolerance", op, ErrInvalidSignature)
	}

	expected := []byte(computeSignature(payload, secret, ts))
	valid := false
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}

func computeSignature(payload []byte, secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

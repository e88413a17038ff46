// Package videourl проверяет, что ссылка на видео урока ведёт на YouTube.
package videourl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/lms-platform/internal/models"
)

var allowedHosts = []string{"youtube.com", "www.youtube.com", "youtu.be"}

// Validate возвращает nil для пустой строки и для ссылок http(s), чей хост
// совпадает с разрешённым доменом или является его поддоменом.
// Иначе возвращает models.ErrInvalidVideoSource.
func Validate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidVideoSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.ErrInvalidVideoSource
	}

	if !allowedHost(u.Hostname()) {
		return models.ErrInvalidVideoSource
	}
	return nil
}

// ValidatePtr то же, что Validate, но nil считается отсутствующим значением.
func ValidatePtr(raw *string) error {
	if raw == nil {
		return nil
	}
	return Validate(*raw)
}

func allowedHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

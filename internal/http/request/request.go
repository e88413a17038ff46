// Package request разбирает параметры пути, строки запроса и тело JSON.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

// IDParam читает положительный идентификатор из параметра пути.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s in url", name)
	}
	return id, nil
}

// QueryInt читает целое из строки запроса. Пустое значение даёт 0.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid query parameter %s", name)
	}
	return v, nil
}

// QueryID читает необязательный идентификатор из строки запроса.
func QueryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("invalid query parameter %s", name)
	}
	return &v, nil
}

// Page читает номер страницы page и размер из параметра sizeParam.
func Page(r *http.Request, sizeParam string) (page, size int, err error) {
	if page, err = QueryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = QueryInt(r, sizeParam); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// DecodeJSON разбирает тело запроса, неизвестные поля считаются ошибкой.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
)

// ErrEmptyOrder indica que PATA respondió 200 sin orden (cuerpo null, {} o
// "data": null). El reconciliador lo trata como orden no encontrada.
var ErrEmptyOrder = errors.New("pata returned an empty order")

// OrderClient consulta órdenes en PATA.
type OrderClient struct {
	http    *http.Client
	base    string
	token   string
	breaker *gobreaker.CircuitBreaker
}

func NewOrderClient(base, token string, timeout time.Duration, bs BreakerSettings) (*OrderClient, error) {
	if base == "" {
		return nil, errors.New("pata base url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OrderClient{
		http:    &http.Client{Timeout: timeout},
		base:    strings.TrimRight(base, "/"),
		token:   token,
		breaker: newBreaker("pata", bs),
	}, nil
}

// GetOrder devuelve la orden identificada por orderUUID. Si el envelope trae
// otros campos pero no "data" se devuelve una orden vacía, que el clasificador
// trata como OTHER. Un cuerpo vacío devuelve ErrEmptyOrder.
func (c *OrderClient) GetOrder(ctx context.Context, market, orderUUID string) (*models.Order, error) {
	target := fmt.Sprintf("%s/%s/order/%s", c.base, url.PathEscape(strings.ToLower(market)), url.PathEscape(orderUUID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	raw, err := execute(c.breaker, c.http, req, "pata", "get_order")
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderUUID, err)
	}
	if raw.status != http.StatusOK {
		return nil, &StatusError{Code: raw.status, Body: string(raw.body)}
	}

	// Primero el envelope crudo: null y {} no son una orden
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw.body, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON from PATA for %s: %w", orderUUID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("get order %s: %w", orderUUID, ErrEmptyOrder)
	}

	data, ok := fields["data"]
	if !ok {
		return &models.Order{}, nil
	}
	if isJSONNull(data) {
		return nil, fmt.Errorf("get order %s: %w", orderUUID, ErrEmptyOrder)
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("invalid order JSON from PATA for %s: %w", orderUUID, err)
	}
	return &order, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

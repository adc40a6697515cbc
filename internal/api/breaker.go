package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/metrics"
)

// Tope de lectura de un body; las páginas de 1000 acciones rondan 1MB.
const maxBodyBytes = 16 << 20

// BreakerSettings controla cuándo se abre el circuito de un upstream.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings: 5 fallos seguidos abren el circuito durante 30s.
var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}

func newBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = DefaultBreakerSettings.ConsecutiveFailures
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = DefaultBreakerSettings.OpenTimeout
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// StatusError es una respuesta HTTP inesperada de un upstream.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, body)
}

// HTTPStatus devuelve el código de la respuesta.
func (e *StatusError) HTTPStatus() int { return e.Code }

type rawResponse struct {
	status int
	body   []byte
}

// execute manda el request a través del breaker. Sólo los errores de
// transporte y los 5xx cuentan como fallo; un 4xx (p.ej. orden inexistente)
// vuelve como respuesta normal.
func execute(cb *gobreaker.CircuitBreaker, client *http.Client, req *http.Request, upstream, operation string) (*rawResponse, error) {
	started := time.Now()
	out, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
		raw := &rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return raw, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		return raw, nil
	})

	raw, _ := out.(*rawResponse)
	status := 0
	if raw != nil {
		status = raw.status
	}
	metrics.ObserveUpstream(upstream, operation, status, started)

	if err != nil {
		return nil, err
	}
	return raw, nil
}

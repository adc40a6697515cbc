package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models/serviceresponse"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/retry"
)

// Sender notifica el resumen de cada ejecución a un webhook externo.
type Sender struct {
	http       *http.Client
	webhookURL string
	attempts   int
	baseDelay  time.Duration
}

// RunSummaryPayload es lo que se envía al webhook. No incluye el audit trail
// completo, sólo contadores por mercado.
type RunSummaryPayload struct {
	RunID         string          `json:"run_id"`
	State         string          `json:"state"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Totals        models.Stats    `json:"totals"`
	FailedMarkets []string        `json:"failed_markets"`
	Markets       []MarketSummary `json:"markets"`
}

type MarketSummary struct {
	Market     string        `json:"market"`
	CampaignID int64         `json:"campaign_id"`
	State      string        `json:"state"`
	Message    string        `json:"message,omitempty"`
	Stats      *models.Stats `json:"stats,omitempty"`
}

// NewSender devuelve nil si no hay URL configurada.
func NewSender(webhookURL string, attempts int) *Sender {
	if webhookURL == "" {
		return nil
	}
	if attempts <= 0 {
		attempts = 3
	}

	return &Sender{
		http:       &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
		attempts:   attempts,
		baseDelay:  time.Second,
	}
}

// buildSummaryPayload resume el reporte de la ejecución
func buildSummaryPayload(report *serviceresponse.RunReport) RunSummaryPayload {
	payload := RunSummaryPayload{
		RunID:         report.RunID,
		State:         string(report.State),
		StartDate:     report.StartDate,
		EndDate:       report.EndDate,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		Totals:        report.Totals(),
		FailedMarkets: report.FailedMarkets(),
		Markets:       make([]MarketSummary, 0, len(report.Markets)),
	}
	if payload.FailedMarkets == nil {
		payload.FailedMarkets = []string{}
	}

	for _, m := range report.Markets {
		ms := MarketSummary{
			Market:     m.Market,
			CampaignID: m.CampaignID,
			State:      string(m.State),
			Message:    m.Message,
		}
		if m.Result != nil {
			stats := m.Result.Stats
			ms.Stats = &stats
		}
		payload.Markets = append(payload.Markets, ms)
	}

	return payload
}

// NotifyRun implementa service.RunNotifier. Reintenta con backoff: el
// webhook sólo recibe un resumen, no modifica nada en Impact.
func (s *Sender) NotifyRun(ctx context.Context, report *serviceresponse.RunReport) error {
	payload, err := json.Marshal(buildSummaryPayload(report))
	if err != nil {
		return fmt.Errorf("error marshaling run summary: %w", err)
	}

	return retry.WithRetry(ctx, s.attempts, s.baseDelay, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("error creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Retry-Attempt", fmt.Sprintf("%d", attempt))
		req.Header.Set("X-Run-ID", report.RunID)

		resp, err := s.http.Do(req)
		if err != nil {
			zap.L().Warn("error sending webhook", zap.Int("attempt", attempt), zap.Error(err))
			return fmt.Errorf("error sending webhook (attempt %d/%d): %w", attempt, s.attempts, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			zap.L().Info("webhook enviado", zap.String("run_id", report.RunID), zap.Int("attempt", attempt))
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return retry.Permanent(fmt.Errorf("webhook rejected with status: %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook failed with status: %d (attempt %d/%d)", resp.StatusCode, attempt, s.attempts)
		}
	})
}

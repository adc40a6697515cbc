// internal/models/serviceresponse/types.go
package serviceresponse

import (
	"time"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
)

// RunState es el estado global de una ejecución multi-mercado.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
)

// MarketState es el estado de un mercado dentro de una ejecución.
type MarketState string

const (
	MarketPending MarketState = "pending"
	MarketRunning MarketState = "running"
	MarketDone    MarketState = "done"
	MarketFailed  MarketState = "failed"
)

// RunReport representa el resultado (o el progreso) de una ejecución.
type RunReport struct {
	RunID      string          `json:"run_id"`
	State      RunState        `json:"state"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Markets    []MarketOutcome `json:"markets"`
}

// MarketOutcome resume lo que pasó con un mercado.
type MarketOutcome struct {
	Market     string                  `json:"market"`
	CampaignID int64                   `json:"campaign_id"`
	State      MarketState             `json:"state"`
	Message    string                  `json:"message,omitempty"`
	ErrorCause string                  `json:"error_cause,omitempty"`
	Error      string                  `json:"-"` // Sólo para logs internos
	Result     *models.MarketRunResult `json:"result,omitempty"`
}

// Totals suma los stats de todos los mercados terminados.
func (r *RunReport) Totals() models.Stats {
	var total models.Stats
	for _, m := range r.Markets {
		if m.Result == nil {
			continue
		}
		s := m.Result.Stats
		total.TotalActions += s.TotalActions
		total.Other += s.Other
		total.ItemReturned += s.ItemReturned
		total.OrderUpdate += s.OrderUpdate
		total.NotModified += s.NotModified
		total.NotProcessed += s.NotProcessed
	}
	return total
}

// FailedMarkets devuelve los mercados que no se pudieron procesar.
func (r *RunReport) FailedMarkets() []string {
	var out []string
	for _, m := range r.Markets {
		if m.State == MarketFailed {
			out = append(out, m.Market)
		}
	}
	return out
}

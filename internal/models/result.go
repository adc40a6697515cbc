package models

import "github.com/shopspring/decimal"

// State es la clave de un bucket en ActionsByState.
type State string

const (
	StateOther        State = "OTHER"
	StateItemReturned State = "ITEM_RETURNED"
	StateOrderUpdate  State = "ORDER_UPDATE"
	StateNotModified  State = "Not_Modified"
	StateNotProcessed State = "Not_Processed"
)

// Reasons del audit trail que no son una clasificación.
const (
	ReasonLookupFailed = "Failed to process order"
	ReasonNotProcessed = "Not Processed"
	ReasonNotModified  = "Not Modified"
)

// AllStates en el orden en que se reportan.
var AllStates = []State{StateOther, StateItemReturned, StateOrderUpdate, StateNotModified, StateNotProcessed}

// Stats son los contadores de una pasada de mercado.
type Stats struct {
	TotalActions int `json:"total_actions"`
	Other        int `json:"OTHER"`
	ItemReturned int `json:"ITEM_RETURNED"`
	OrderUpdate  int `json:"ORDER_UPDATE"`
	NotModified  int `json:"Not_Modified"`
	NotProcessed int `json:"Not_Processed"`
}

// Increment suma uno al contador del estado dado.
func (s *Stats) Increment(state State) {
	switch state {
	case StateOther:
		s.Other++
	case StateItemReturned:
		s.ItemReturned++
	case StateOrderUpdate:
		s.OrderUpdate++
	case StateNotModified:
		s.NotModified++
	case StateNotProcessed:
		s.NotProcessed++
	}
}

// Count devuelve el contador del estado dado.
func (s Stats) Count(state State) int {
	switch state {
	case StateOther:
		return s.Other
	case StateItemReturned:
		return s.ItemReturned
	case StateOrderUpdate:
		return s.OrderUpdate
	case StateNotModified:
		return s.NotModified
	case StateNotProcessed:
		return s.NotProcessed
	}
	return 0
}

// ActionRecord es una línea del audit trail.
type ActionRecord struct {
	ActionID string              `json:"actionId"`
	OrderID  string              `json:"orderId"`
	Amount   decimal.NullDecimal `json:"amount"`
	Reason   string              `json:"reason"`
}

// NotProcessedEntry identifica una acción que no se pudo completar.
type NotProcessedEntry struct {
	Market   string `json:"market"`
	ActionID string `json:"action_id"`
	Error    string `json:"error,omitempty"`
}

// MarketRunResult es el resultado inmutable de reconciliar un mercado.
type MarketRunResult struct {
	Market         string                   `json:"market"`
	CampaignID     int64                    `json:"campaign_id"`
	StartDate      string                   `json:"start_date"`
	EndDate        string                   `json:"end_date"`
	Stats          Stats                    `json:"stats"`
	NotProcessed   []NotProcessedEntry      `json:"not_processed"`
	ActionsByState map[State][]ActionRecord `json:"actions_by_state"`
}

// NewMarketRunResult crea un resultado vacío con todos los buckets inicializados.
func NewMarketRunResult(market string, campaignID int64, start, end string) *MarketRunResult {
	byState := make(map[State][]ActionRecord, len(AllStates))
	for _, s := range AllStates {
		byState[s] = []ActionRecord{}
	}
	return &MarketRunResult{
		Market:         market,
		CampaignID:     campaignID,
		StartDate:      start,
		EndDate:        end,
		NotProcessed:   []NotProcessedEntry{},
		ActionsByState: byState,
	}
}

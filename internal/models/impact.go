package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AffiliateAction es una acción (comisión) tal como la devuelve Impact.
// Impact serializa casi todos los campos como string, por eso Text.
type AffiliateAction struct {
	ID           string `json:"Id"`
	OrderID      Text   `json:"Oid"`
	AdvertiserID Text   `json:"AdId,omitempty"`
	CampaignID   Text   `json:"CampaignId,omitempty"`
	State        string `json:"State,omitempty"`
	EventDate    string `json:"EventDate,omitempty"`
}

// NumericOrderID parsea Oid, el número de orden del comercio que guarda Impact.
func (a AffiliateAction) NumericOrderID() (int64, error) {
	raw := strings.TrimSpace(a.OrderID.String())
	if raw == "" {
		return 0, fmt.Errorf("action %s has no order id", a.ID)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("action %s: invalid order id %q: %w", a.ID, raw, err)
	}
	return n, nil
}

// ActionsPage representa una página de GET /Actions
type ActionsPage struct {
	Actions  []AffiliateAction `json:"Actions"`
	Page     Text              `json:"@page,omitempty"`
	NumPages Text              `json:"@numpages,omitempty"`
}

// ActionMutationResult es el cuerpo que Impact devuelve al revertir o
// actualizar una acción. El orquestador sólo mira que no haya error.
type ActionMutationResult struct {
	StatusCode int
	Body       map[string]interface{}
}

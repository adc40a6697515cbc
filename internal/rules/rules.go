// Package rules decide qué corrección necesita una acción de Impact a partir
// del snapshot de la orden en PATA. Es una tabla de decisión fija.
package rules

import (
	"strings"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
)

// Classification es el conjunto cerrado de resultados de la reconciliación.
type Classification int

const (
	// NoAction: orden completamente válida, no se toca.
	NoAction Classification = iota
	// VoidOther: fraude, voucher, sin posiciones o pendiente. Se revierte con 0.
	VoidOther
	// ItemReturned: todas las posiciones devueltas o rechazadas. Se revierte con 0.
	ItemReturned
	// PartialUpdate: devolución parcial, se actualiza con el importe pendiente.
	PartialUpdate
)

// String devuelve el nombre que se envía a Impact como Reason.
func (c Classification) String() string {
	switch c {
	case VoidOther:
		return "OTHER"
	case ItemReturned:
		return "ITEM_RETURNED"
	case PartialUpdate:
		return "ORDER_UPDATE"
	default:
		return "NONE"
	}
}

// State devuelve el bucket del resultado. NoAction no tiene bucket propio.
func (c Classification) State() (models.State, bool) {
	switch c {
	case VoidOther:
		return models.StateOther, true
	case ItemReturned:
		return models.StateItemReturned, true
	case PartialUpdate:
		return models.StateOrderUpdate, true
	default:
		return "", false
	}
}

// IsReversal indica si la acción se revierte en lugar de actualizarse.
func (c Classification) IsReversal() bool {
	return c == VoidOther || c == ItemReturned
}

// Decision es el resultado de Classify. El importe sólo es distinto de cero
// en PartialUpdate.
type Decision struct {
	Classification Classification
	cost           int64
}

func noAction() Decision             { return Decision{Classification: NoAction} }
func void(c Classification) Decision { return Decision{Classification: c} }
func partial(cost int64) Decision    { return Decision{Classification: PartialUpdate, cost: cost} }

// Amount devuelve el importe bruto a enviar. ok es false para NoAction.
func (d Decision) Amount() (amount int64, ok bool) {
	switch d.Classification {
	case NoAction:
		return 0, false
	case PartialUpdate:
		return d.cost, true
	default:
		return 0, true
	}
}

// FraudKeywords se buscan en las notas internas sin distinguir mayúsculas.
var FraudKeywords = []string{
	"fraud risk",
	"fraud order",
	"do not refund",
	"do not issue refund",
	"declined rma process",
	"lost parcels process",
}

const internalNoteType = "internal note"

// Classify aplica la tabla de decisión; la primera regla que coincide gana.
func Classify(order models.Order) Decision {
	// 1) Notas internas de fraude
	if hasFraudNote(order.History) {
		return void(VoidOther)
	}

	// 2) Voucher
	if order.HasVoucherCode() {
		return void(VoidOther)
	}

	// 3) Sin posiciones
	positions := order.Positions
	if len(positions) == 0 {
		return void(VoidOther)
	}

	// 4) Única posición pendiente
	if len(positions) == 1 && isPending(positions[0]) {
		return void(VoidOther)
	}

	// 5) Devueltas o rechazadas
	multi := len(positions) > 1
	returned := 0
	var unrefunded int64
	for _, p := range positions {
		if isReturnedOrRejected(p, multi) {
			returned++
			continue
		}
		unrefunded += p.PriceAmount()
	}

	switch {
	case returned == len(positions):
		// 6) Todas devueltas
		return void(ItemReturned)
	case returned > 0:
		// 7) Devolución parcial: lo que queda, en unidades mayores, truncado
		return partial(unrefunded / 100)
	default:
		// 8) Completamente enviada/aceptada
		return noAction()
	}
}

func hasFraudNote(history []models.HistoryEntry) bool {
	for _, h := range history {
		if strings.ToLower(strings.TrimSpace(h.Type.String())) != internalNoteType {
			continue
		}
		msg := strings.ToLower(h.Message.String())
		for _, kw := range FraudKeywords {
			if strings.Contains(msg, kw) {
				return true
			}
		}
	}
	return false
}

func isPending(p models.Position) bool {
	return p.Amount >= 1 && p.NormalizedStatus() == "pending"
}

// isReturnedOrRejected: en órdenes con varias posiciones, una pendiente cuenta
// como devuelta; sola, ya la trató la regla 4.
func isReturnedOrRejected(p models.Position, multi bool) bool {
	st := p.NormalizedStatus()
	amt := p.Amount
	switch {
	case st == "rejected" && amt == 1:
		return true
	case amt == 0 && (st == "accepted" || st == "sent"):
		return true
	case multi && isPending(p):
		return true
	}
	return false
}

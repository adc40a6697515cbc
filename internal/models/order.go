package models

import "strings"

// Order es el snapshot completo de una orden en PATA (campo "data" de
// GET /{market}/order/{uuid}). Se obtiene fresco por cada acción y nunca se
// modifica.
type Order struct {
	OrderID   interface{}    `json:"orderId,omitempty"`
	Positions []Position     `json:"positions"`
	Voucher   *Voucher       `json:"voucher,omitempty"`
	History   []HistoryEntry `json:"history,omitempty"`
}

// Position es una línea de la orden. Amount es una cantidad (0 o 1), no dinero.
type Position struct {
	Status string   `json:"status"`
	Amount Quantity `json:"amount"`
	Price  *Price   `json:"price,omitempty"`
}

// Price en unidades menores (céntimos).
type Price struct {
	Amount   Quantity `json:"amount"`
	Currency string   `json:"currency,omitempty"`
}

type Voucher struct {
	Code Text `json:"code"`
}

type HistoryEntry struct {
	Type    Text `json:"type"`
	Message Text `json:"message"`
}

// NormalizedStatus devuelve el status en minúsculas y sin espacios.
func (p Position) NormalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(p.Status))
}

// PriceAmount devuelve price.amount o 0 si falta.
func (p Position) PriceAmount() int64 {
	if p.Price == nil {
		return 0
	}
	return p.Price.Amount.Int64()
}

// HasVoucherCode indica si voucher.code existe y no está en blanco.
func (o Order) HasVoucherCode() bool {
	if o.Voucher == nil {
		return false
	}
	return strings.TrimSpace(o.Voucher.Code.String()) != ""
}

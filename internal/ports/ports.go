// Package ports define los colaboradores que consume el orquestador.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
)

// Credentials identifica una cuenta de Impact.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

// CredentialSource resuelve las credenciales de Impact de un mercado.
// ok es false si faltan o están vacías.
type CredentialSource interface {
	Lookup(market string) (creds Credentials, ok bool)
}

// AffiliateClient es una cuenta de Impact ya autenticada.
type AffiliateClient interface {
	ListActions(ctx context.Context, campaignID int64, market, startDate, endDate string) ([]models.AffiliateAction, error)
	ReverseAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error)
	UpdateAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error)
}

// AffiliateDirectory construye un AffiliateClient por cuenta.
type AffiliateDirectory interface {
	ForAccount(creds Credentials) AffiliateClient
}

// OrderLookup obtiene el snapshot de una orden en PATA. Cualquier error se
// trata como "orden no encontrada".
type OrderLookup interface {
	GetOrder(ctx context.Context, market, orderUUID string) (*models.Order, error)
}

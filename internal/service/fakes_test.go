package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/orderid"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/ports"
)

type fakeCredentials map[string]ports.Credentials

func (f fakeCredentials) Lookup(market string) (ports.Credentials, bool) {
	c, ok := f[market]
	return c, ok
}

func credsFor(markets ...string) fakeCredentials {
	out := fakeCredentials{}
	for _, m := range markets {
		out[m] = ports.Credentials{AccountSID: "IR" + m, AuthToken: "t" + m}
	}
	return out
}

type mutation struct {
	Method   string
	ActionID string
	Amount   decimal.Decimal
	Reason   string
}

type fakeAffiliate struct {
	mu sync.Mutex

	actions []models.AffiliateAction
	listErr error

	failMutation  map[string]error
	panicMutation map[string]bool

	mutations []mutation
}

func (f *fakeAffiliate) ListActions(ctx context.Context, campaignID int64, market, start, end string) ([]models.AffiliateAction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.actions, nil
}

func (f *fakeAffiliate) ReverseAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	return f.mutate("reverse", actionID, amount, reason)
}

func (f *fakeAffiliate) UpdateAction(ctx context.Context, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	return f.mutate("update", actionID, amount, reason)
}

func (f *fakeAffiliate) mutate(method, actionID string, amount decimal.Decimal, reason string) (*models.ActionMutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMutation[actionID] {
		panic("boom " + actionID)
	}
	f.mutations = append(f.mutations, mutation{Method: method, ActionID: actionID, Amount: amount, Reason: reason})
	if err := f.failMutation[actionID]; err != nil {
		return nil, err
	}
	return &models.ActionMutationResult{StatusCode: 200}, nil
}

func (f *fakeAffiliate) calls() []mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mutation(nil), f.mutations...)
}

// fakeDirectory devuelve el mismo fakeAffiliate por cuenta.
type fakeDirectory struct {
	byAccount map[string]*fakeAffiliate
}

func (d *fakeDirectory) ForAccount(creds ports.Credentials) ports.AffiliateClient {
	return d.byAccount[creds.AccountSID]
}

func directoryFor(market string, a *fakeAffiliate) *fakeDirectory {
	return &fakeDirectory{byAccount: map[string]*fakeAffiliate{"IR" + market: a}}
}

var errOrderNotFound = errors.New("order not found")

type fakeOrders struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	lookups []string
}

func (f *fakeOrders) GetOrder(ctx context.Context, market, orderUUID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, orderUUID)
	o, ok := f.orders[orderUUID]
	if !ok {
		return nil, errOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) put(market string, orderID int64, o *models.Order) {
	if f.orders == nil {
		f.orders = map[string]*models.Order{}
	}
	id, err := orderid.Encode(market, orderID)
	if err != nil {
		panic(err)
	}
	f.orders[id] = o
}

func action(id string, oid string) models.AffiliateAction {
	return models.AffiliateAction{ID: id, OrderID: models.Text(oid)}
}

func position(status string, amount, price int64) models.Position {
	return models.Position{Status: status, Amount: models.Quantity(amount), Price: &models.Price{Amount: models.Quantity(price)}}
}

func orderWith(positions ...models.Position) *models.Order {
	return &models.Order{Positions: positions}
}

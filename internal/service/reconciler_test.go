package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/api"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
)

const dkCampaign = 30761

func TestReconcileMarket_LookupFailReverseOkUpdateFail(t *testing.T) {
	aff := &fakeAffiliate{
		actions: []models.AffiliateAction{
			action("A1", "100"),
			action("A2", "200"),
			action("A3", "300"),
		},
		failMutation: map[string]error{"A3": errors.New("unexpected status 400")},
	}
	orders := &fakeOrders{}
	orders.put("DK", 200, orderWith(position("rejected", 1, 15100)))
	orders.put("DK", 300, orderWith(position("accepted", 0, 53000), position("sent", 1, 3900)))

	r := NewReconciler(credsFor("DK"), directoryFor("DK", aff), orders)
	res, err := r.ReconcileMarket(context.Background(), dkCampaign, "DK", "2024-03-10", "2024-03-10")
	require.NoError(t, err)

	assert.Equal(t, models.Stats{
		TotalActions: 3,
		NotProcessed: 2,
		ItemReturned: 1,
	}, res.Stats)
	require.Len(t, res.NotProcessed, 2)
	assert.Equal(t, "A1", res.NotProcessed[0].ActionID)
	assert.Equal(t, "A3", res.NotProcessed[1].ActionID)
	assert.Equal(t, "DK", res.NotProcessed[0].Market)

	np := res.ActionsByState[models.StateNotProcessed]
	require.Len(t, np, 2)
	assert.Equal(t, models.ReasonLookupFailed, np[0].Reason)
	assert.Equal(t, models.ReasonNotProcessed, np[1].Reason)
	assert.False(t, np[0].Amount.Valid)

	ir := res.ActionsByState[models.StateItemReturned]
	require.Len(t, ir, 1)
	assert.Equal(t, "A2", ir[0].ActionID)
	assert.Equal(t, "200", ir[0].OrderID)
	assert.Equal(t, "ITEM_RETURNED", ir[0].Reason)
	require.True(t, ir[0].Amount.Valid)
	assert.True(t, ir[0].Amount.Decimal.IsZero())

	assert.Empty(t, res.ActionsByState[models.StateNotModified])

	calls := aff.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, mutation{Method: "reverse", ActionID: "A2", Amount: calls[0].Amount, Reason: "ITEM_RETURNED"}, calls[0])
	assert.Equal(t, "update", calls[1].Method)
	assert.Equal(t, "31.2", calls[1].Amount.String())
	assert.Equal(t, "ORDER_UPDATE", calls[1].Reason)
}

func TestReconcileMarket_EmptyOrderBodyIsNotReversed(t *testing.T) {
	for _, body := range []string{`{}`, `null`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			pata, err := api.NewOrderClient(srv.URL, "", time.Second, api.DefaultBreakerSettings)
			require.NoError(t, err)

			aff := &fakeAffiliate{actions: []models.AffiliateAction{action("A1", "100")}}
			r := NewReconciler(credsFor("DK"), directoryFor("DK", aff), pata)
			res, err := r.ReconcileMarket(context.Background(), dkCampaign, "DK", "2024-03-10", "2024-03-10")
			require.NoError(t, err)

			assert.Equal(t, models.Stats{TotalActions: 1, NotProcessed: 1}, res.Stats)
			np := res.ActionsByState[models.StateNotProcessed]
			require.Len(t, np, 1)
			assert.Equal(t, "A1", np[0].ActionID)
			assert.Equal(t, models.ReasonLookupFailed, np[0].Reason)
			assert.Empty(t, res.ActionsByState[models.StateOther])
			assert.Empty(t, aff.calls())
		})
	}
}

func TestReconcileMarket_AllOutcomes(t *testing.T) {
	aff := &fakeAffiliate{
		actions: []models.AffiliateAction{
			action("N1", "1"), // todo enviado
			action("O1", "2"), // voucher
			action("U1", "3"), // parcial
			action("N2", "4"), // todo enviado
		},
	}
	orders := &fakeOrders{}
	orders.put("DE", 1, orderWith(position("sent", 1, 100), position("accepted", 1, 100)))
	voucher := orderWith(position("sent", 1, 100))
	voucher.Voucher = &models.Voucher{Code: "SUMMER"}
	orders.put("DE", 2, voucher)
	orders.put("DE", 3, orderWith(position("rejected", 1, 5000), position("sent", 1, 10000)))
	orders.put("DE", 4, orderWith(position("sent", 1, 100)))

	r := NewReconciler(credsFor("DE"), directoryFor("DE", aff), orders)
	res, err := r.ReconcileMarket(context.Background(), 32026, "DE", "2024-07-01", "2024-07-01")
	require.NoError(t, err)

	assert.Equal(t, models.Stats{TotalActions: 4, Other: 1, OrderUpdate: 1, NotModified: 2}, res.Stats)
	assert.Empty(t, res.NotProcessed)

	ou := res.ActionsByState[models.StateOrderUpdate]
	require.Len(t, ou, 1)
	// 100 € brutos al 19% → 84.03
	assert.Equal(t, "84.03", ou[0].Amount.Decimal.StringFixed(2))

	nm := res.ActionsByState[models.StateNotModified]
	require.Len(t, nm, 2)
	assert.Equal(t, "N1", nm[0].ActionID)
	assert.Equal(t, "N2", nm[1].ActionID)
	assert.Equal(t, models.ReasonNotModified, nm[0].Reason)
	assert.False(t, nm[0].Amount.Valid)

	assert.Equal(t, 4, len(orders.lookups))
	assert.Len(t, aff.calls(), 2)
}

func TestReconcileMarket_PanicDoesNotStopLoop(t *testing.T) {
	aff := &fakeAffiliate{
		actions:       []models.AffiliateAction{action("P1", "1"), action("OK", "2")},
		panicMutation: map[string]bool{"P1": true},
	}
	orders := &fakeOrders{}
	orders.put("SE", 1, orderWith())
	orders.put("SE", 2, orderWith())

	r := NewReconciler(credsFor("SE"), directoryFor("SE", aff), orders)
	res, err := r.ReconcileMarket(context.Background(), 30859, "SE", "2024-01-01", "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.NotProcessed)
	assert.Equal(t, 1, res.Stats.Other)
	assert.Equal(t, 0, res.Stats.NotModified)
	require.Len(t, res.NotProcessed, 1)
	assert.Equal(t, "P1", res.NotProcessed[0].ActionID)
	assert.Contains(t, res.NotProcessed[0].Error, "boom P1")
}

func TestReconcileMarket_BadOrderIDIsNotProcessed(t *testing.T) {
	aff := &fakeAffiliate{actions: []models.AffiliateAction{action("X1", ""), action("X2", "abc"), action("X3", "-5")}}
	orders := &fakeOrders{}

	r := NewReconciler(credsFor("NO"), directoryFor("NO", aff), orders)
	res, err := r.ReconcileMarket(context.Background(), 30894, "NO", "2024-01-01", "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.NotProcessed)
	assert.Equal(t, 0, res.Stats.NotModified)
	assert.Empty(t, orders.lookups)
	for _, rec := range res.ActionsByState[models.StateNotProcessed] {
		assert.Equal(t, models.ReasonLookupFailed, rec.Reason)
	}
}

func TestReconcileMarket_MarketWithoutVATIsNotProcessed(t *testing.T) {
	aff := &fakeAffiliate{actions: []models.AffiliateAction{action("F1", "7")}}
	orders := &fakeOrders{}
	orders.put("FI", 7, orderWith())

	r := NewReconciler(credsFor("FI"), directoryFor("FI", aff), orders)
	res, err := r.ReconcileMarket(context.Background(), 1, "FI", "2024-01-01", "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.NotProcessed)
	assert.Empty(t, aff.calls())
	assert.Contains(t, res.NotProcessed[0].Error, "no VAT rate")
}

func TestReconcileMarket_MissingCredentials(t *testing.T) {
	r := NewReconciler(credsFor("DK"), &fakeDirectory{}, &fakeOrders{})
	res, err := r.ReconcileMarket(context.Background(), 30860, "UK", "2024-01-01", "2024-01-01")
	assert.Nil(t, res)
	var mc *MissingCredentialsError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "UK", mc.Market)
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

func TestReconcileMarket_FetchError(t *testing.T) {
	aff := &fakeAffiliate{listErr: fmt.Errorf("listing actions page 1: %w", statusErr{code: http.StatusUnauthorized})}
	r := NewReconciler(credsFor("DK"), directoryFor("DK", aff), &fakeOrders{})

	res, err := r.ReconcileMarket(context.Background(), dkCampaign, "DK", "2024-01-01", "2024-01-01")
	assert.Nil(t, res)
	var fe *MarketFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "DK", fe.Market)
	assert.Equal(t, CauseUnauthorized, fe.Cause)
	assert.ErrorIs(t, err, aff.listErr)
}

func TestReconcileMarket_EmptyMarket(t *testing.T) {
	aff := &fakeAffiliate{}
	r := NewReconciler(credsFor("DK"), directoryFor("DK", aff), &fakeOrders{})

	res, err := r.ReconcileMarket(context.Background(), dkCampaign, "DK", "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, res.Stats)
	for _, st := range models.AllStates {
		assert.NotNil(t, res.ActionsByState[st], st)
	}
}

func TestReconcileMarket_NotModifiedFormula(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// NONE, OTHER, ITEM_RETURNED, ORDER_UPDATE y orden no encontrada
	kinds := []func() *models.Order{
		func() *models.Order { return orderWith(position("sent", 1, 100)) },
		func() *models.Order { return orderWith() },
		func() *models.Order { return orderWith(position("rejected", 1, 100)) },
		func() *models.Order { return orderWith(position("rejected", 1, 100), position("sent", 1, 900)) },
		nil,
	}

	for round := 0; round < 20; round++ {
		n := rng.Intn(30)
		aff := &fakeAffiliate{failMutation: map[string]error{}}
		orders := &fakeOrders{orders: map[string]*models.Order{}}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("R%d-%d", round, i)
			aff.actions = append(aff.actions, action(id, fmt.Sprint(i+1)))
			if mk := kinds[rng.Intn(len(kinds))]; mk != nil {
				orders.put("IT", int64(i+1), mk())
			}
			if rng.Intn(5) == 0 {
				aff.failMutation[id] = errors.New("rejected by Impact")
			}
		}

		r := NewReconciler(credsFor("IT"), directoryFor("IT", aff), orders)
		res, err := r.ReconcileMarket(context.Background(), 30768, "IT", "2024-01-01", "2024-01-01")
		require.NoError(t, err)

		s := res.Stats
		assert.Equal(t, n, s.TotalActions)
		assert.Equal(t, s.TotalActions-(s.NotProcessed+s.Other+s.ItemReturned+s.OrderUpdate), s.NotModified)
		assert.Len(t, res.ActionsByState[models.StateNotModified], s.NotModified)
		assert.Len(t, res.NotProcessed, s.NotProcessed)

		total := 0
		for _, st := range models.AllStates {
			total += len(res.ActionsByState[st])
		}
		assert.Equal(t, n, total, "every action lands in exactly one bucket")
	}
}

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FetchCause
	}{
		{"status 401", statusErr{http.StatusUnauthorized}, CauseUnauthorized},
		{"status 404", statusErr{http.StatusNotFound}, CauseNotFound},
		{"status 504", statusErr{http.StatusGatewayTimeout}, CauseTimeout},
		{"status 500", statusErr{http.StatusInternalServerError}, CauseOther},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), CauseTimeout},
		{"text unauthorized", errors.New("Unauthorized access"), CauseUnauthorized},
		{"text 401", errors.New("got 401 from upstream"), CauseUnauthorized},
		{"text timeout", errors.New("Client.Timeout exceeded while awaiting headers"), CauseTimeout},
		{"text 404", errors.New("404 page not found"), CauseNotFound},
		{"other", errors.New("connection refused"), CauseOther},
		{"nil", nil, CauseOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFetchError(tt.err))
		})
	}
}

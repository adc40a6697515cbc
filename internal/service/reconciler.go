package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/logging"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/markets"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/metrics"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/orderid"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/ports"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/rules"
)

// Reconciler reconcilia las acciones de Impact de un mercado contra PATA.
// Las llamadas a Impact y PATA no se reintentan: una corrección duplicada
// cambiaría la comisión dos veces.
type Reconciler struct {
	credentials ports.CredentialSource
	affiliates  ports.AffiliateDirectory
	orders      ports.OrderLookup
}

func NewReconciler(creds ports.CredentialSource, affiliates ports.AffiliateDirectory, orders ports.OrderLookup) *Reconciler {
	return &Reconciler{
		credentials: creds,
		affiliates:  affiliates,
		orders:      orders,
	}
}

// ReconcileMarket procesa todas las acciones de la campaña entre start y end.
// Sólo devuelve error si no hay credenciales o si no se pudieron listar las
// acciones; los fallos por acción quedan en el resultado como Not_Processed.
func (r *Reconciler) ReconcileMarket(ctx context.Context, campaignID int64, market, startDate, endDate string) (*models.MarketRunResult, error) {
	logger := zap.L().With(logging.GetLoggingFieldsFromContext(ctx)...).
		With(zap.String("market", market), zap.Int64("campaign_id", campaignID))

	// 1) Credenciales
	creds, ok := r.credentials.Lookup(market)
	if !ok {
		logger.Error("missing Impact credentials")
		return nil, &MissingCredentialsError{Market: market}
	}
	client := r.affiliates.ForAccount(creds)

	// 2) Acciones de Impact
	actions, err := client.ListActions(ctx, campaignID, market, startDate, endDate)
	if err != nil {
		cause := ClassifyFetchError(err)
		logger.Error("error fetching actions", zap.String("cause", string(cause)), zap.Error(err))
		return nil, &MarketFetchError{Market: market, Cause: cause, Err: err}
	}

	result := models.NewMarketRunResult(market, campaignID, startDate, endDate)
	result.Stats.TotalActions = len(actions)

	logger.Info("reconciling actions", zap.Int("total_actions", len(actions)))

	// 3) Una acción cada vez
	for i := range actions {
		r.processAction(ctx, logger, client, market, actions[i], result)
	}

	// 4) Lo que no se tocó
	finalizeNotModified(result, actions)

	for _, st := range models.AllStates {
		if n := result.Stats.Count(st); n > 0 {
			metrics.ActionsTotal.WithLabelValues(market, string(st)).Add(float64(n))
		}
	}

	logger.Info("market reconciled",
		zap.Int("total_actions", result.Stats.TotalActions),
		zap.Int("other", result.Stats.Other),
		zap.Int("item_returned", result.Stats.ItemReturned),
		zap.Int("order_update", result.Stats.OrderUpdate),
		zap.Int("not_modified", result.Stats.NotModified),
		zap.Int("not_processed", result.Stats.NotProcessed),
	)
	return result, nil
}

func (r *Reconciler) processAction(
	ctx context.Context,
	logger *zap.Logger,
	client ports.AffiliateClient,
	market string,
	action models.AffiliateAction,
	result *models.MarketRunResult,
) {
	logger = logger.With(zap.String("action_id", action.ID), zap.String("order_id", action.OrderID.String()))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while processing action", zap.Any("panic", rec))
			recordNotProcessed(result, market, action, models.ReasonNotProcessed, fmt.Errorf("panic: %v", rec))
		}
	}()

	// Orden en PATA
	orderNum, err := action.NumericOrderID()
	if err != nil {
		logger.Warn("action without usable order id", zap.Error(err))
		recordNotProcessed(result, market, action, models.ReasonLookupFailed, err)
		return
	}
	orderUUID, err := orderid.Encode(market, orderNum)
	if err != nil {
		logger.Warn("cannot build order identifier", zap.Error(err))
		recordNotProcessed(result, market, action, models.ReasonLookupFailed, err)
		return
	}
	order, err := r.orders.GetOrder(ctx, market, orderUUID)
	if err != nil || order == nil {
		if err == nil {
			err = fmt.Errorf("order %s not found", orderUUID)
		}
		logger.Warn("order couldn't be retrieved from PATA", zap.String("order_uuid", orderUUID), zap.Error(err))
		recordNotProcessed(result, market, action, models.ReasonLookupFailed, err)
		return
	}

	// Clasificación
	decision := rules.Classify(*order)
	gross, ok := decision.Amount()
	if !ok {
		logger.Debug("no correction needed")
		return
	}
	state, _ := decision.Classification.State()
	reason := decision.Classification.String()

	net, err := markets.ExcludeVAT(gross, market)
	if err != nil {
		logger.Error("cannot exclude VAT", zap.Error(err))
		recordNotProcessed(result, market, action, models.ReasonNotProcessed, err)
		return
	}

	// Corrección en Impact
	if decision.Classification.IsReversal() {
		_, err = client.ReverseAction(ctx, action.ID, net, reason)
	} else {
		_, err = client.UpdateAction(ctx, action.ID, net, reason)
	}
	if err != nil {
		logger.Error("corrective call failed", zap.String("reason", reason), zap.Error(err))
		recordNotProcessed(result, market, action, models.ReasonNotProcessed, err)
		return
	}

	result.Stats.Increment(state)
	result.ActionsByState[state] = append(result.ActionsByState[state], models.ActionRecord{
		ActionID: action.ID,
		OrderID:  action.OrderID.String(),
		Amount:   decimal.NewNullDecimal(net),
		Reason:   reason,
	})
	logger.Info("action corrected", zap.String("reason", reason), zap.String("amount", net.StringFixed(2)))
}

func recordNotProcessed(result *models.MarketRunResult, market string, action models.AffiliateAction, reason string, cause error) {
	entry := models.NotProcessedEntry{Market: market, ActionID: action.ID}
	if cause != nil {
		entry.Error = cause.Error()
	}
	result.Stats.Increment(models.StateNotProcessed)
	result.NotProcessed = append(result.NotProcessed, entry)
	result.ActionsByState[models.StateNotProcessed] = append(result.ActionsByState[models.StateNotProcessed], models.ActionRecord{
		ActionID: action.ID,
		OrderID:  action.OrderID.String(),
		Reason:   reason,
	})
}

// finalizeNotModified calcula Not_Modified como resto y añade un registro por
// cada acción que no aparece en ningún otro bucket.
func finalizeNotModified(result *models.MarketRunResult, actions []models.AffiliateAction) {
	s := &result.Stats
	s.NotModified = s.TotalActions - (s.NotProcessed + s.Other + s.ItemReturned + s.OrderUpdate)

	touched := make(map[string]struct{})
	for _, st := range []models.State{models.StateOther, models.StateItemReturned, models.StateOrderUpdate, models.StateNotProcessed} {
		for _, rec := range result.ActionsByState[st] {
			touched[rec.ActionID] = struct{}{}
		}
	}
	for _, a := range actions {
		if _, ok := touched[a.ID]; ok {
			continue
		}
		result.ActionsByState[models.StateNotModified] = append(result.ActionsByState[models.StateNotModified], models.ActionRecord{
			ActionID: a.ID,
			OrderID:  a.OrderID.String(),
			Reason:   models.ReasonNotModified,
		})
	}
}

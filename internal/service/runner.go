package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/affiliate-reconciliation-service/internal/errors"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/logging"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/markets"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/metrics"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models/serviceresponse"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/worker"
)

// MarketReconciler es lo que el runner necesita de Reconciler.
type MarketReconciler interface {
	ReconcileMarket(ctx context.Context, campaignID int64, market, startDate, endDate string) (*models.MarketRunResult, error)
}

// RunNotifier recibe el reporte final de cada ejecución.
type RunNotifier interface {
	NotifyRun(ctx context.Context, report *serviceresponse.RunReport) error
}

// RunRequest describe una ejecución. Markets vacío = todos los configurados.
type RunRequest struct {
	Markets   []string
	StartDate string
	EndDate   string
	Trigger   string
}

// Runner ejecuta Reconciler sobre varios mercados. Un mercado que falla no
// detiene a los demás.
type Runner struct {
	reconciler  MarketReconciler
	campaigns   map[int64]string
	concurrency int
	store       *RunStore
	notifier    RunNotifier
	newRunID    func() string
}

type RunnerOption func(*Runner)

// WithNotifier envía el reporte final a n.
func WithNotifier(n RunNotifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithConcurrency fija cuántos mercados se procesan a la vez.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewRunner(reconciler MarketReconciler, campaigns map[int64]string, store *RunStore, opts ...RunnerOption) *Runner {
	r := &Runner{
		reconciler:  reconciler,
		campaigns:   campaigns,
		concurrency: 1,
		store:       store,
		newRunID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store expone el RunStore para los handlers de consulta.
func (r *Runner) Store() *RunStore { return r.store }

// Start lanza la ejecución en background y devuelve su id. La ejecución no
// se cancela cuando termina el request que la lanzó.
func (r *Runner) Start(ctx context.Context, req RunRequest) (string, error) {
	report, err := r.begin(req)
	if err != nil {
		return "", err
	}
	go r.execute(context.WithoutCancel(ctx), report.RunID, req)
	return report.RunID, nil
}

// Run ejecuta de forma síncrona y devuelve el reporte final.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*serviceresponse.RunReport, error) {
	report, err := r.begin(req)
	if err != nil {
		return nil, err
	}
	r.execute(ctx, report.RunID, req)
	final, _ := r.store.Get(report.RunID)
	return final, nil
}

func (r *Runner) begin(req RunRequest) (*serviceresponse.RunReport, error) {
	mks := r.resolveMarkets(req.Markets)
	if len(mks) == 0 {
		return nil, errors.New("no markets to reconcile")
	}

	report := &serviceresponse.RunReport{
		RunID:     r.newRunID(),
		State:     serviceresponse.RunRunning,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StartedAt: time.Now().UTC(),
		Markets:   make([]serviceresponse.MarketOutcome, len(mks)),
	}
	for i, m := range mks {
		campaign, _ := markets.CampaignFor(r.campaigns, m)
		report.Markets[i] = serviceresponse.MarketOutcome{
			Market:     m,
			CampaignID: campaign,
			State:      serviceresponse.MarketPending,
		}
	}

	if err := r.store.Begin(report); err != nil {
		return nil, err
	}
	return report, nil
}

// resolveMarkets normaliza y quita duplicados manteniendo el orden pedido.
func (r *Runner) resolveMarkets(requested []string) []string {
	if len(requested) == 0 {
		return markets.MarketsOf(r.campaigns)
	}
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, m := range requested {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func (r *Runner) execute(ctx context.Context, runID string, req RunRequest) {
	ctx = logging.WithRun(ctx, runID, req.Trigger)
	logger := zap.L().With(logging.GetLoggingFieldsFromContext(ctx)...)
	started := time.Now()

	report, _ := r.store.Get(runID)
	logger.Info("reconciliation run started",
		zap.Int("markets", len(report.Markets)),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
		zap.Int("concurrency", r.concurrency),
	)

	pool := worker.NewWorkerPool(r.concurrency, len(report.Markets))
	pool.Start(ctx)
	for i, outcome := range report.Markets {
		idx, market, campaign := i, outcome.Market, outcome.CampaignID
		pool.Enqueue(worker.WorkerTask{
			Name: market,
			Run: func(ctx context.Context) {
				r.runMarket(ctx, runID, idx, market, campaign, req)
			},
		})
	}
	pool.Close()
	pool.Wait()

	// Mercados que no llegaron a ejecutarse (p.ej. apagado del servidor)
	for i := range report.Markets {
		r.store.UpdateMarket(runID, i, func(o *serviceresponse.MarketOutcome) {
			if o.State == serviceresponse.MarketPending || o.State == serviceresponse.MarketRunning {
				o.State = serviceresponse.MarketFailed
				o.Message = "Run interrupted before the market finished"
			}
		})
	}

	r.store.Finish(runID, time.Now().UTC())
	metrics.RunDuration.Observe(time.Since(started).Seconds())

	final, _ := r.store.Get(runID)
	totals := final.Totals()
	logger.Info("reconciliation run completed",
		zap.Duration("duration", time.Since(started)),
		zap.Int("total_actions", totals.TotalActions),
		zap.Int("not_processed", totals.NotProcessed),
		zap.Strings("failed_markets", final.FailedMarkets()),
	)

	if r.notifier != nil {
		if err := r.notifier.NotifyRun(ctx, final); err != nil {
			logger.Error("run notification failed", zap.Error(err))
		}
	}
}

func (r *Runner) runMarket(ctx context.Context, runID string, idx int, market string, campaign int64, req RunRequest) {
	logger := zap.L().With(logging.GetLoggingFieldsFromContext(ctx)...).With(zap.String("market", market))

	r.store.UpdateMarket(runID, idx, func(o *serviceresponse.MarketOutcome) {
		o.State = serviceresponse.MarketRunning
	})

	if campaign == 0 {
		logger.Error("no campaign configured for market")
		metrics.MarketRunsTotal.WithLabelValues(market, "failed", "config").Inc()
		r.store.UpdateMarket(runID, idx, func(o *serviceresponse.MarketOutcome) {
			o.State = serviceresponse.MarketFailed
			o.Message = "No campaign configured for market " + market
		})
		return
	}

	res, err := r.reconciler.ReconcileMarket(ctx, campaign, market, req.StartDate, req.EndDate)
	if err != nil {
		appErr, cause := describeMarketError(market, err)
		logger.Error("market reconciliation failed", zap.String("cause", cause), zap.Error(err))
		metrics.MarketRunsTotal.WithLabelValues(market, "failed", cause).Inc()
		r.store.UpdateMarket(runID, idx, func(o *serviceresponse.MarketOutcome) {
			o.State = serviceresponse.MarketFailed
			o.Message = appErr.Message
			o.ErrorCause = cause
			o.Error = err.Error()
		})
		return
	}

	metrics.MarketRunsTotal.WithLabelValues(market, "done", "").Inc()
	r.store.UpdateMarket(runID, idx, func(o *serviceresponse.MarketOutcome) {
		o.State = serviceresponse.MarketDone
		o.Result = res
	})
}

func describeMarketError(market string, err error) (*apperrors.AppError, string) {
	var mc *MissingCredentialsError
	if errors.As(err, &mc) {
		return apperrors.ErrMissingCredentials(market, err), "missing_credentials"
	}
	var fe *MarketFetchError
	if errors.As(err, &fe) {
		return apperrors.ForFetchCause(market, string(fe.Cause), err), string(fe.Cause)
	}
	return apperrors.ErrExternalAPI(market, err), string(CauseOther)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/api"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/config"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/handlers"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/logging"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/metrics"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/scheduler"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/service"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/validator"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/webhook"
)

const serviceName = "affiliate-reconciliation-service"

// Convertir niveles de Zap a severidad de GCP Cloud Logging
func zapLevelToGCPSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("CRITICAL")
	case zapcore.FatalLevel:
		enc.AppendString("EMERGENCY")
	default:
		enc.AppendString("DEFAULT")
	}
}

// MAIN: inicializa servidor, runner, cron y dependencias
func main() {
	configPath := flag.String("config", envOrDefault("CONFIG_FILE", "config.yaml"), "path to the YAML config file")
	once := flag.Bool("once", false, "run a single reconciliation and exit instead of serving HTTP")
	startDate := flag.String("start", "", "first day to reconcile (YYYY-MM-DD, default yesterday) with -once")
	endDate := flag.String("end", "", "last day to reconcile (YYYY-MM-DD, default start) with -once")
	marketList := flag.String("markets", "", "comma separated markets with -once (default all configured)")
	flag.Parse()

	// Inicializar Zap Logger con formato compatible con GCP Cloud Logging
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.MessageKey = "message"
	zcfg.EncoderConfig.LevelKey = "severity"
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeLevel = zapLevelToGCPSeverity
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Reemplazar logger global
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Error("Invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		zap.L().Error("Failed to load Impact credentials", zap.Error(err))
		os.Exit(1)
	}

	// Inicializar dependencias
	breaker := api.BreakerSettings{ConsecutiveFailures: cfg.BreakerFailures, OpenTimeout: cfg.BreakerOpenTimeout}
	impact, err := api.NewImpactDirectory(cfg.ImpactBaseURL, cfg.HTTPTimeout, cfg.PageSize, breaker)
	if err != nil {
		zap.L().Error("Failed to start Impact client", zap.Error(err))
		os.Exit(1)
	}
	pata, err := api.NewOrderClient(cfg.PATABaseURL, cfg.PATAToken, cfg.HTTPTimeout, breaker)
	if err != nil {
		zap.L().Error("Failed to start PATA client", zap.Error(err))
		os.Exit(1)
	}

	reconciler := service.NewReconciler(creds, impact, pata)

	opts := []service.RunnerOption{service.WithConcurrency(cfg.Concurrency)}
	if sender := webhook.NewSender(cfg.WebhookURL, cfg.WebhookAttempts); sender != nil {
		opts = append(opts, service.WithNotifier(sender))
	}
	runner := service.NewRunner(reconciler, cfg.Campaigns, service.NewRunStore(0), opts...)

	// Modo batch: una ejecución síncrona y salir
	if *once {
		code := runOnce(runner, cfg.Markets(), *marketList, *startDate, *endDate)
		logger.Sync()
		os.Exit(code)
	}

	var cronJob *scheduler.Scheduler
	if cfg.Schedule != "" {
		cronJob, err = scheduler.New(cfg.Schedule, runner, time.UTC)
		if err != nil {
			zap.L().Error("Failed to schedule reconciliation", zap.Error(err))
			os.Exit(1)
		}
		cronJob.Start()
	}

	// HTTP ROUTES
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withLogging)
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handlers.NewReconcileHandler(runner, cfg.Markets()).Routes(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// GRACEFUL SHUTDOWN
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		<-sigChan

		zap.L().Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if cronJob != nil {
			cronJob.Stop(shutdownCtx)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Graceful shutdown failed", zap.Error(err))
		}
		if runID, active := runner.Store().Active(); active {
			zap.L().Warn("Exiting with a reconciliation run still active", zap.String("run_id", runID))
		}

		zap.L().Info("Server exited")
		os.Exit(0)
	}()

	zap.L().Info("Server started",
		zap.String("port", cfg.Port),
		zap.Strings("markets", cfg.Markets()),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("schedule", cfg.Schedule),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zap.L().Error("Server stopped unexpectedly", zap.Error(err))
	}
}

// runOnce ejecuta una reconciliación completa en primer plano. Devuelve el
// código de salida: 1 si la petición es inválida o algún mercado falló.
func runOnce(runner *service.Runner, known []string, marketList, start, end string) int {
	if start == "" {
		start = validator.Yesterday(time.Now(), time.UTC)
	}
	if end == "" {
		end = start
	}
	req := &models.ReconcileRequest{StartDate: start, EndDate: end}
	for _, m := range strings.Split(marketList, ",") {
		if m = strings.TrimSpace(m); m != "" {
			req.Markets = append(req.Markets, m)
		}
	}
	if err := validator.NewRequestValidator(known).ValidateRequest(req); err != nil {
		zap.L().Error("Invalid reconciliation request", zap.Error(err))
		return 1
	}

	report, err := runner.Run(context.Background(), service.RunRequest{
		Markets:   req.Markets,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Trigger:   "cli",
	})
	if err != nil {
		zap.L().Error("Reconciliation failed to start", zap.Error(err))
		return 1
	}

	totals := report.Totals()
	failed := report.FailedMarkets()
	zap.L().Info("Reconciliation finished",
		zap.String("run_id", report.RunID),
		zap.Int("total_actions", totals.TotalActions),
		zap.Int("other", totals.Other),
		zap.Int("item_returned", totals.ItemReturned),
		zap.Int("order_update", totals.OrderUpdate),
		zap.Int("not_modified", totals.NotModified),
		zap.Int("not_processed", totals.NotProcessed),
		zap.Strings("failed_markets", failed),
	)
	if len(failed) > 0 {
		return 1
	}
	return 0
}

// MIDDLEWARE: Logging con Trace ID compatible con GCP
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extraer Trace ID de Cloud Run
		traceHeader := r.Header.Get("X-Cloud-Trace-Context")
		var traceID string
		if traceHeader != "" {
			// Formato: TRACE_ID/SPAN_ID;o=TRACE_TRUE
			if slashIdx := strings.IndexByte(traceHeader, '/'); slashIdx != -1 {
				traceID = traceHeader[:slashIdx]
			} else {
				traceID = traceHeader
			}
		}
		if traceID == "" {
			traceID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
		}

		// Obtener Project ID para el formato completo de trace
		projectID := os.Getenv("GCP_PROJECT")
		if projectID == "" {
			projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}

		ctx := logging.WithTraceID(r.Context(), traceID)

		logFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.String("httpRequest.remoteIp", r.RemoteAddr),
			zap.String("httpRequest.userAgent", r.UserAgent()),
		}
		if projectID != "" {
			logFields = append(logFields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
		}

		zap.L().Info("Request started", logFields...)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		// Usar el patrón de ruta para no disparar la cardinalidad con run ids
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		metrics.ObserveRequest(endpoint, r.Method, status, duration)

		completedFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.Int("httpRequest.status", status),
			zap.Int64("httpRequest.latency.milliseconds", duration.Milliseconds()),
			zap.Float64("httpRequest.latency.seconds", duration.Seconds()),
		}
		if projectID != "" {
			completedFields = append(completedFields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
		}

		zap.L().Info("Request completed", completedFields...)
	})
}

// HEALTH CHECK
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/affiliate-reconciliation-service/internal/errors"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/logging"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/service"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/validator"
)

type ReconcileHandler struct {
	runner    *service.Runner
	validator *validator.RequestValidator
}

func NewReconcileHandler(runner *service.Runner, knownMarkets []string) *ReconcileHandler {
	return &ReconcileHandler{
		runner:    runner,
		validator: validator.NewRequestValidator(knownMarkets),
	}
}

// Routes monta los endpoints de reconciliación en r.
func (h *ReconcileHandler) Routes(r chi.Router) {
	r.Post("/reconcile", h.StartReconciliation)
	r.Get("/runs/latest", h.LatestRun)
	r.Get("/runs/{runID}", h.GetRun)
}

type startResponse struct {
	RunID     string `json:"run_id"`
	StatusURL string `json:"status_url"`
}

// StartReconciliation lanza una ejecución en background y responde 202.
func (h *ReconcileHandler) StartReconciliation(w http.ResponseWriter, r *http.Request) {
	logger := zap.L().With(logging.GetLoggingFieldsFromContext(r.Context())...)

	var req models.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("Invalid JSON", zap.Error(err))
		writeError(w, apperrors.ErrBadRequest("Invalid JSON", err))
		return
	}

	// Validar fechas y mercados
	if err := h.validator.ValidateRequest(&req); err != nil {
		logger.Error("Request validation failed",
			zap.Error(err),
			zap.Strings("markets", req.Markets),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		writeError(w, apperrors.ErrBadRequest(err.Error(), err))
		return
	}

	runID, err := h.runner.Start(r.Context(), service.RunRequest{
		Markets:   req.Markets,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Trigger:   "http",
	})
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			active, _ := h.runner.Store().Active()
			writeError(w, apperrors.ErrConflict("Wait for the active run to finish", err).WithMetadata("run_id", active))
			return
		}
		logger.Error("Cannot start reconciliation", zap.Error(err))
		writeError(w, apperrors.ErrInternalServer(err.Error(), err))
		return
	}

	logger.Info("Reconciliation started",
		zap.String("run_id", runID),
		zap.Strings("markets", req.Markets),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)
	writeJSON(w, http.StatusAccepted, startResponse{RunID: runID, StatusURL: "/runs/" + runID})
}

// LatestRun devuelve la última ejecución (en curso o terminada).
func (h *ReconcileHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	report, ok := h.runner.Store().Latest()
	if !ok {
		writeError(w, apperrors.ErrNotFound("No reconciliation has run yet", nil))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetRun devuelve una ejecución por id.
func (h *ReconcileHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	report, ok := h.runner.Store().Get(runID)
	if !ok {
		writeError(w, apperrors.ErrNotFound("Unknown run "+runID, nil))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("error encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.StatusCode, err)
}

package service

import (
	"errors"
	"sync"
	"time"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/models/serviceresponse"
)

// ErrRunInProgress: ya hay una ejecución activa.
var ErrRunInProgress = errors.New("a reconciliation run is already in progress")

const defaultMaxRuns = 20

// RunStore guarda el estado de las ejecuciones para consultarlo por HTTP.
// Los workers de mercado lo actualizan en paralelo, por eso el lock.
type RunStore struct {
	mu       sync.RWMutex
	reports  map[string]*serviceresponse.RunReport
	order    []string
	latestID string
	activeID string
	maxRuns  int
}

// NewRunStore crea un store vacío que guarda como mucho maxRuns reportes.
func NewRunStore(maxRuns int) *RunStore {
	if maxRuns <= 0 {
		maxRuns = defaultMaxRuns
	}
	return &RunStore{
		reports: make(map[string]*serviceresponse.RunReport),
		maxRuns: maxRuns,
	}
}

// Begin registra una ejecución nueva como activa.
func (s *RunStore) Begin(report *serviceresponse.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID != "" {
		return ErrRunInProgress
	}
	s.reports[report.RunID] = report
	s.order = append(s.order, report.RunID)
	s.latestID = report.RunID
	s.activeID = report.RunID

	for len(s.order) > s.maxRuns {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// UpdateMarket aplica fn al mercado idx de la ejecución runID.
func (s *RunStore) UpdateMarket(runID string, idx int, fn func(*serviceresponse.MarketOutcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[runID]
	if !ok || idx < 0 || idx >= len(r.Markets) {
		return
	}
	fn(&r.Markets[idx])
}

// Finish marca la ejecución como terminada y libera el slot activo.
func (s *RunStore) Finish(runID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[runID]; ok {
		r.State = serviceresponse.RunCompleted
		r.FinishedAt = &at
	}
	if s.activeID == runID {
		s.activeID = ""
	}
}

// Get devuelve una copia del reporte.
func (s *RunStore) Get(runID string) (*serviceresponse.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[runID]
	if !ok {
		return nil, false
	}
	return snapshot(r), true
}

// Latest devuelve una copia de la última ejecución iniciada.
func (s *RunStore) Latest() (*serviceresponse.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latestID == "" {
		return nil, false
	}
	r, ok := s.reports[s.latestID]
	if !ok {
		return nil, false
	}
	return snapshot(r), true
}

// Active devuelve la ejecución activa, si la hay.
func (s *RunStore) Active() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.activeID != ""
}

// Los MarketRunResult no se modifican una vez asignados; basta con copiar
// el slice de mercados.
func snapshot(r *serviceresponse.RunReport) *serviceresponse.RunReport {
	cp := *r
	cp.Markets = append([]serviceresponse.MarketOutcome(nil), r.Markets...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

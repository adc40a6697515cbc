// Package scheduler lanza la reconciliación diaria con cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/service"
	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/validator"
)

// RunStarter es la parte del runner que usa el scheduler.
type RunStarter interface {
	Start(ctx context.Context, req service.RunRequest) (string, error)
}

// Scheduler reconcilia el día anterior para todos los mercados.
type Scheduler struct {
	cron     *cron.Cron
	runner   RunStarter
	location *time.Location
	now      func() time.Time
}

// New prepara el job con una expresión de 6 campos (con segundos), en la
// zona horaria loc.
func New(spec string, runner RunStarter, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		runner:   runner,
		location: loc,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	zap.L().Info("[Cron] reconciliation job scheduled", zap.String("location", s.location.String()))
}

// Stop para el cron y espera al job en curso, si lo hay.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) trigger() {
	day := validator.Yesterday(s.now(), s.location)
	runID, err := s.runner.Start(context.Background(), service.RunRequest{
		StartDate: day,
		EndDate:   day,
		Trigger:   "schedule",
	})
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			zap.L().Warn("[Cron] skipped: a run is already in progress", zap.String("date", day))
			return
		}
		zap.L().Error("[Cron] failed to start reconciliation", zap.String("date", day), zap.Error(err))
		return
	}
	zap.L().Info("[Cron] reconciliation started", zap.String("run_id", runID), zap.String("date", day))
}

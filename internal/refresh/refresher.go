// Package refresh keeps the course store's collections warm between user
// actions. Refresh failures degrade to stale data; they never stop the
// schedule.
package refresh

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/store"
	"github.com/campusudc/asesorias-api/pkg/config"
)

// Refresher periodically re-runs the dependent fetch sequence
// (courses → enrollments → requests) with a per-run timeout.
type Refresher struct {
	cfg    config.RefreshConfig
	store  *store.CourseStore
	logger *zap.Logger
	cron   *cron.Cron
}

// New constructs the refresher.
func New(cfg config.RefreshConfig, courseStore *store.CourseStore, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{cfg: cfg, store: courseStore, logger: logger}
}

// Start schedules the refresh job and runs one refresh immediately so the
// store never serves an empty catalog longer than the first run takes.
func (r *Refresher) Start() error {
	if !r.cfg.Enabled {
		return nil
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.cfg.Schedule, r.run); err != nil {
		return err
	}
	r.cron.Start()
	go r.run()
	return nil
}

// Stop halts the schedule, waiting for an in-flight run to finish.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	if err := r.store.FetchCourses(ctx); err != nil {
		r.logger.Warn("background refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("background refresh completed")
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/libralend/libralend-backend/pkg/logger"
)

const alertRetentionDays = 30

type AlertCleanupJobParams struct {
	Logger     *logger.Logger
	Repository alertsCleanupRepo
	Retention  int
}

type alertsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAlertCleanupJob builds the job that prunes read alerts past retention.
func NewAlertCleanupJob(params AlertCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = alertRetentionDays
	}
	return &alertCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type alertCleanupJob struct {
	logg      *logger.Logger
	repo      alertsCleanupRepo
	retention int
	now       func() time.Time
}

func (j *alertCleanupJob) Name() string { return "alert-cleanup" }

func (j *alertCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("alert cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "alert cleanup complete")
	return nil
}

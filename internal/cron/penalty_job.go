package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/libralend/libralend-backend/pkg/logger"
)

type PenaltyJobParams struct {
	Logger   *logger.Logger
	Assessor penaltyAssessor
}

type penaltyAssessor interface {
	AssessPenalties(ctx context.Context, asOf time.Time) (int, error)
}

// NewPenaltyJob builds the daily job that recomputes overdue fines.
func NewPenaltyJob(params PenaltyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Assessor == nil {
		return nil, fmt.Errorf("penalty assessor required")
	}
	return &penaltyJob{
		logg:     params.Logger,
		assessor: params.Assessor,
		now:      time.Now,
	}, nil
}

type penaltyJob struct {
	logg     *logger.Logger
	assessor penaltyAssessor
	now      func() time.Time
}

func (j *penaltyJob) Name() string { return "penalty-assessment" }

func (j *penaltyJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	assessed, err := j.assessor.AssessPenalties(ctx, asOf)
	if err != nil {
		return fmt.Errorf("penalty assessment: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":          asOf,
		"loans_assessed": assessed,
	})
	j.logg.Info(logCtx, "penalty assessment complete")
	return nil
}

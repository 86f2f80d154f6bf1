package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/greengate/internal/strains"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// JobStrainSync refreshes the local strain cache.
const JobStrainSync = "strain-sync"

type strainSyncer interface {
	Run(ctx context.Context) (*strains.SyncReport, error)
}

type strainSyncJob struct {
	logg   *logger.Logger
	syncer strainSyncer
}

func NewStrainSyncJob(logg *logger.Logger, syncer strainSyncer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("strain syncer required")
	}
	return &strainSyncJob{logg: logg, syncer: syncer}, nil
}

func (j *strainSyncJob) Name() string { return JobStrainSync }

func (j *strainSyncJob) Run(ctx context.Context) error {
	report, err := j.syncer.Run(ctx)
	if report != nil {
		upserted, deactivated := 0, int64(0)
		for _, c := range report.Countries {
			upserted += c.Upserted
			deactivated += c.Deactivated
		}
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"countries":   len(report.Countries),
			"upserted":    upserted,
			"deactivated": deactivated,
		}), "strain sync complete")
	}
	if err != nil {
		return fmt.Errorf("strain sync: %w", err)
	}
	return nil
}

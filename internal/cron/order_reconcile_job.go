package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/greengate/internal/reconcile"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// JobOrderReconcile pulls upstream order state for every linked client.
const JobOrderReconcile = "order-reconcile"

type orderPoller interface {
	RunOnce(ctx context.Context) (*reconcile.BatchReport, error)
}

type orderReconcileJob struct {
	logg   *logger.Logger
	poller orderPoller
}

// NewOrderReconcileJob wraps a reconcile poller as a cron job.
func NewOrderReconcileJob(logg *logger.Logger, poller orderPoller) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if poller == nil {
		return nil, fmt.Errorf("order poller required")
	}
	return &orderReconcileJob{logg: logg, poller: poller}, nil
}

func (j *orderReconcileJob) Name() string { return JobOrderReconcile }

func (j *orderReconcileJob) Run(ctx context.Context) error {
	report, err := j.poller.RunOnce(ctx)
	if report != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"clients":  report.Clients,
			"skipped":  report.Skipped,
			"failed":   report.Failed,
			"updated":  report.Updated,
			"inserted": report.Inserted,
		}), "order reconcile pass complete")
	}
	if err != nil {
		return fmt.Errorf("order reconcile: %w", err)
	}
	return nil
}

package reconcile

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/greengate/pkg/db/models"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// ClientLister returns the clients due for reconciliation, least recently
// synced first.
type ClientLister interface {
	ListSyncable(ctx context.Context, limit int) ([]models.Client, error)
}

// BatchReport aggregates one polling pass.
type BatchReport struct {
	Clients  int         `json:"clients"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Updated  int         `json:"updated"`
	Inserted int         `json:"inserted"`
	Failures []uuid.UUID `json:"failures,omitempty"`
	Reports  []*Report   `json:"-"`
}

// Poller reconciles every syncable client, one at a time.
type Poller struct {
	reconciler *Reconciler
	clients    ClientLister
	batchLimit int
	logg       *logger.Logger
}

// NewPoller wires a poller over the reconciler.
func NewPoller(reconciler *Reconciler, clients ClientLister, batchLimit int, logg *logger.Logger) (*Poller, error) {
	switch {
	case reconciler == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reconciler required")
	case clients == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "client lister required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Poller{reconciler: reconciler, clients: clients, batchLimit: batchLimit, logg: logg}, nil
}

// RunOnce walks the syncable clients sequentially. A failing client does not
// stop the pass; the errors are combined and returned at the end.
func (p *Poller) RunOnce(ctx context.Context) (*BatchReport, error) {
	rows, err := p.clients.ListSyncable(ctx, p.batchLimit)
	if err != nil {
		return nil, err
	}

	batch := &BatchReport{Clients: len(rows)}
	var errs error
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return batch, multierr.Append(errs, err)
		}
		client := &rows[i]
		report, err := p.reconciler.Reconcile(ctx, client)
		if report != nil {
			batch.Reports = append(batch.Reports, report)
			batch.Updated += report.Updated
			batch.Inserted += report.Inserted
			if report.Skipped {
				batch.Skipped++
			}
		}
		if err != nil {
			batch.Failed++
			batch.Failures = append(batch.Failures, client.ID)
			p.logg.Error(p.logg.WithField(ctx, "client_id", client.ID.String()), "order reconcile failed", err)
			errs = multierr.Append(errs, err)
		}
	}
	return batch, errs
}

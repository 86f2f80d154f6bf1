package cron

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/greengate/internal/clients"
	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// JobClientStatusPoll refreshes KYC and approval state for pending clients.
const JobClientStatusPoll = "client-status-poll"

const defaultStatusBatch = 100

type clientStatusStore interface {
	ListNeedingReview(ctx context.Context, limit int) ([]models.Client, error)
	ApplyStatus(ctx context.Context, clientID uuid.UUID, update clients.StatusUpdate) (*clients.StatusChange, error)
}

type ClientStatusJobParams struct {
	Logger     *logger.Logger
	Upstream   drgreen.Doer
	Clients    clientStatusStore
	Notifier   notifications.Notifier
	Journal    journey.Recorder
	BatchLimit int
}

type clientStatusJob struct {
	logg     *logger.Logger
	upstream drgreen.Doer
	clients  clientStatusStore
	notifier notifications.Notifier
	journal  journey.Recorder
	limit    int
}

// NewClientStatusJob builds the KYC poll. Journal is optional.
func NewClientStatusJob(params ClientStatusJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Upstream == nil:
		return nil, fmt.Errorf("drgreen client required")
	case params.Clients == nil:
		return nil, fmt.Errorf("clients store required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultStatusBatch
	}
	return &clientStatusJob{
		logg:     params.Logger,
		upstream: params.Upstream,
		clients:  params.Clients,
		notifier: params.Notifier,
		journal:  params.Journal,
		limit:    limit,
	}, nil
}

func (j *clientStatusJob) Name() string { return JobClientStatusPoll }

func (j *clientStatusJob) Run(ctx context.Context) error {
	pending, err := j.clients.ListNeedingReview(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list pending clients: %w", err)
	}

	var errs error
	checked, changed := 0, 0
	for i := range pending {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		client := &pending[i]
		if client.DrGreenClientID == nil {
			continue
		}
		checked++
		updated, err := j.refresh(ctx, client)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("client %s: %w", client.ID, err))
			continue
		}
		if updated {
			changed++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"pending": len(pending),
		"checked": checked,
		"changed": changed,
		"failed":  len(multierr.Errors(errs)),
	}), "client status poll complete")
	return errs
}

func (j *clientStatusJob) refresh(ctx context.Context, client *models.Client) (bool, error) {
	upstreamID := *client.DrGreenClientID
	resp, err := j.upstream.Do(ctx, drgreen.Request{
		Action: JobClientStatusPoll,
		Method: http.MethodGet,
		Path:   "dapp/clients/" + url.PathEscape(upstreamID),
	})
	if err != nil {
		return false, err
	}
	rec, ok := drgreen.DecodeObject[drgreen.ClientRecord](resp.Payload())
	if !ok || rec.UpstreamID() != upstreamID {
		j.logg.Warn(j.logg.WithField(ctx, "client_id", client.ID.String()), "upstream client record missing or mismatched")
		return false, nil
	}

	approval, err := enums.ParseApprovalStatus(rec.AdminApproval)
	if err != nil {
		approval = client.AdminApproval
	}
	update := clients.StatusUpdate{IsKYCVerified: rec.IsKYCVerified, AdminApproval: approval}
	if link := strings.TrimSpace(rec.KYCLink); link != "" {
		update.KYCLink = &link
	}
	change, err := j.clients.ApplyStatus(ctx, client.ID, update)
	if err != nil {
		return false, err
	}
	if !change.Changed {
		return false, nil
	}

	if _, err := j.notifier.Notify(ctx, clients.StatusNotification(change)); err != nil {
		j.logg.Warn(ctx, fmt.Sprintf("kyc notification failed: %v", err))
	}
	if j.journal != nil {
		entry := journey.Entry{
			UserID:    client.UserID,
			ClientID:  client.ID,
			EventType: enums.JourneyEventKYCStatusChanged,
			Action:    JobClientStatusPoll,
			Metadata: map[string]any{
				"isKycVerified":         change.Client.IsKYCVerified,
				"adminApproval":         string(change.Client.AdminApproval),
				"previousAdminApproval": string(change.PreviousApprove),
			},
		}
		if err := j.journal.Record(ctx, entry); err != nil {
			j.logg.Warn(ctx, fmt.Sprintf("journey log failed: %v", err))
		}
	}
	return true, nil
}

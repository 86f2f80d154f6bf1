package journey

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/pagination"
)

// Entry is one audit event. Metadata is redacted before it is stored.
type Entry struct {
	UserID    uuid.UUID
	ClientID  uuid.UUID
	EventType enums.JourneyEvent
	Action    string
	Metadata  map[string]any
}

// Recorder appends journey entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Service records and lists journey entries.
type Service interface {
	Recorder
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]models.JourneyLog, error)
}

type service struct {
	repo Repository
}

// NewService wires the journey log service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "journey repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	return s.RecordTx(ctx, nil, entry)
}

func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if !entry.EventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid journey event type")
	}
	row := &models.JourneyLog{
		EventType: entry.EventType,
		Action:    entry.Action,
	}
	if entry.UserID != uuid.Nil {
		userID := entry.UserID
		row.UserID = &userID
	}
	if entry.ClientID != uuid.Nil {
		clientID := entry.ClientID
		row.ClientID = &clientID
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(logger.Redact(entry.Metadata))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode journey metadata")
		}
		row.Metadata = datatypes.JSON(raw)
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append journey log")
	}
	return nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.JourneyLog, error) {
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list journey logs")
	}
	if rows == nil {
		rows = []models.JourneyLog{}
	}
	return rows, nil
}

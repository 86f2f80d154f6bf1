package clients

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/types"
)

const defaultListLimit = 200

// Service owns the local client mirror. Every local user maps to at most one
// upstream client and vice versa.
type Service interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error)
	GetByDrGreenID(ctx context.Context, drgreenClientID string) (*models.Client, error)
	OwnerOf(ctx context.Context, drgreenClientID string) (uuid.UUID, error)
	EnsureRegistrable(ctx context.Context, userID uuid.UUID) error
	Mirror(ctx context.Context, input MirrorInput) (*MirrorResult, error)
	ApplyStatus(ctx context.Context, clientID uuid.UUID, update StatusUpdate) (*StatusChange, error)
	UpdateShipping(ctx context.Context, clientID uuid.UUID, address types.ShippingAddress) error
	Deactivate(ctx context.Context, clientID uuid.UUID) error
	TouchSynced(ctx context.Context, clientID uuid.UUID, at time.Time) error
	ListNeedingReview(ctx context.Context, limit int) ([]models.Client, error)
	ListSyncable(ctx context.Context, limit int) ([]models.Client, error)
}

// MirrorInput carries an upstream client snapshot for the given local user.
type MirrorInput struct {
	UserID uuid.UUID
	Email  string
	Record drgreen.ClientRecord
	Raw    []byte
}

// MirrorResult reports the stored row and whether it was newly created.
type MirrorResult struct {
	Client  *models.Client
	Created bool
}

// StatusUpdate carries the KYC/approval fields refreshed from upstream.
type StatusUpdate struct {
	IsKYCVerified bool
	AdminApproval enums.ApprovalStatus
	KYCLink       *string
}

// StatusChange describes what a status refresh modified.
type StatusChange struct {
	Client          *models.Client
	Changed         bool
	PreviousKYC     bool
	PreviousApprove enums.ApprovalStatus
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the client mirror service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "clients repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error) {
	client, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "load client")
	}
	return client, nil
}

func (s *service) GetByDrGreenID(ctx context.Context, drgreenClientID string) (*models.Client, error) {
	id := strings.TrimSpace(drgreenClientID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	client, err := s.repo.FindByDrGreenID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "load client")
	}
	return client, nil
}

// OwnerOf returns the local user owning the upstream client id.
func (s *service) OwnerOf(ctx context.Context, drgreenClientID string) (uuid.UUID, error) {
	client, err := s.GetByDrGreenID(ctx, drgreenClientID)
	if err != nil {
		return uuid.Nil, err
	}
	return client.UserID, nil
}

// EnsureRegistrable fails with CONFLICT when the user is already linked to an
// upstream client, active or deactivated. It runs before any upstream call.
func (s *service) EnsureRegistrable(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	existing, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	switch {
	case existing.DrGreenClientID == nil:
		return nil
	case !existing.IsActive:
		return pkgerrors.New(pkgerrors.CodeConflict, "client for this user is deactivated")
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "client already registered for this user")
	}
}

func (s *service) Mirror(ctx context.Context, input MirrorInput) (*MirrorResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	upstreamID := input.Record.UpstreamID()
	if upstreamID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upstream client id missing")
	}

	byUpstream, err := s.repo.FindByDrGreenID(ctx, upstreamID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if byUpstream != nil && byUpstream.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "client belongs to another user")
	}

	existing, err := s.repo.FindByUser(ctx, input.UserID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if existing != nil && existing.DrGreenClientID != nil && *existing.DrGreenClientID != upstreamID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already linked to a different client")
	}

	created := existing == nil
	client := existing
	if created {
		client = &models.Client{
			UserID:        input.UserID,
			AdminApproval: enums.ApprovalStatusPending,
			IsActive:      true,
		}
	}
	applyRecord(client, input, upstreamID)

	if created {
		err = s.repo.Create(ctx, client)
	} else {
		err = s.repo.Save(ctx, client)
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "client already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store client")
	}
	return &MirrorResult{Client: client, Created: created}, nil
}

func applyRecord(client *models.Client, input MirrorInput, upstreamID string) {
	rec := input.Record
	client.DrGreenClientID = &upstreamID

	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(input.Email))
	}
	if email != "" {
		client.Email = email
	}
	if country := rec.CountryCode(); country != "" {
		client.CountryCode = country
	}
	if rec.Shipping != nil {
		addr := rec.Shipping.Normalize()
		client.ShippingAddress = &addr
	}

	client.IsKYCVerified = rec.IsKYCVerified
	if approval, err := enums.ParseApprovalStatus(rec.AdminApproval); err == nil {
		client.AdminApproval = approval
	}
	if link := strings.TrimSpace(rec.KYCLink); link != "" {
		client.KYCLink = &link
	}
	if rec.IsActive != nil {
		client.IsActive = *rec.IsActive
	}
	if len(input.Raw) > 0 {
		client.UpstreamPayload = datatypes.JSON(input.Raw)
	}
}

func (s *service) ApplyStatus(ctx context.Context, clientID uuid.UUID, update StatusUpdate) (*StatusChange, error) {
	if !update.AdminApproval.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
	}
	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return nil, lookupError(err, "load client")
	}

	change := &StatusChange{
		Client:          client,
		PreviousKYC:     client.IsKYCVerified,
		PreviousApprove: client.AdminApproval,
	}
	updates := map[string]any{}
	if client.IsKYCVerified != update.IsKYCVerified {
		updates["is_kyc_verified"] = update.IsKYCVerified
		client.IsKYCVerified = update.IsKYCVerified
	}
	if client.AdminApproval != update.AdminApproval {
		updates["admin_approval"] = update.AdminApproval
		client.AdminApproval = update.AdminApproval
	}
	if update.KYCLink != nil && (client.KYCLink == nil || *client.KYCLink != *update.KYCLink) {
		updates["kyc_link"] = *update.KYCLink
		client.KYCLink = update.KYCLink
	}
	if len(updates) == 0 {
		return change, nil
	}
	if err := s.repo.Update(ctx, clientID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client status")
	}
	change.Changed = change.PreviousKYC != client.IsKYCVerified || change.PreviousApprove != client.AdminApproval
	return change, nil
}

func (s *service) UpdateShipping(ctx context.Context, clientID uuid.UUID, address types.ShippingAddress) error {
	addr := address.Normalize()
	if err := addr.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode shipping address")
	}
	if err := s.repo.Update(ctx, clientID, map[string]any{
		"shipping_address": datatypes.JSON(raw),
		"country_code":     addr.CountryCode,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipping address")
	}
	return nil
}

func (s *service) Deactivate(ctx context.Context, clientID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, clientID); err != nil {
		return lookupError(err, "load client")
	}
	if err := s.repo.Update(ctx, clientID, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate client")
	}
	return nil
}

func (s *service) TouchSynced(ctx context.Context, clientID uuid.UUID, at time.Time) error {
	if at.IsZero() {
		at = s.now()
	}
	if err := s.repo.Update(ctx, clientID, map[string]any{"last_synced_at": at.UTC()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch client sync time")
	}
	return nil
}

func (s *service) ListNeedingReview(ctx context.Context, limit int) ([]models.Client, error) {
	rows, err := s.repo.ListNeedingReview(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients pending review")
	}
	return rows, nil
}

func (s *service) ListSyncable(ctx context.Context, limit int) ([]models.Client, error) {
	rows, err := s.repo.ListSyncable(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list syncable clients")
	}
	return rows, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func lookupError(err error, message string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

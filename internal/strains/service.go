package strains

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/pagination"
)

// Service reads and refreshes the local strain cache.
type Service interface {
	ApplyCatalog(ctx context.Context, countryCode string, items []json.RawMessage, complete bool) (*CatalogResult, error)
	ListActive(ctx context.Context, countryCode string, page, take int) ([]drgreen.StrainRecord, error)
	Get(ctx context.Context, countryCode, drgreenStrainID string) (*drgreen.StrainRecord, error)
}

// CatalogResult summarizes one ApplyCatalog call.
type CatalogResult struct {
	Upserted    int   `json:"upserted"`
	Skipped     int   `json:"skipped"`
	Deactivated int64 `json:"deactivated"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the strain cache service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "strains repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// ApplyCatalog upserts the given upstream items. When complete is set the
// items are the whole catalog for the country and anything else is
// deactivated, provided at least one item was valid.
func (s *service) ApplyCatalog(ctx context.Context, countryCode string, items []json.RawMessage, complete bool) (*CatalogResult, error) {
	country, ok := CountryCode(countryCode)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country code must be ISO-3166 alpha-3")
	}
	now := s.now().UTC()
	result := &CatalogResult{}
	rows := make([]models.Strain, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	keep := make([]string, 0, len(items))

	for _, raw := range items {
		var rec drgreen.StrainRecord
		if err := json.Unmarshal(raw, &rec); err != nil || strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.Name) == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			result.Skipped++
			continue
		}
		seen[rec.ID] = struct{}{}
		keep = append(keep, rec.ID)
		rows = append(rows, toModel(country, rec, raw, now))
	}

	if err := s.repo.UpsertMany(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert strains")
	}
	result.Upserted = len(rows)

	// an empty keep list would deactivate the whole country
	if complete && len(keep) > 0 {
		deactivated, err := s.repo.DeactivateMissing(ctx, country, keep, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate missing strains")
		}
		result.Deactivated = deactivated
	}
	return result, nil
}

func (s *service) ListActive(ctx context.Context, countryCode string, page, take int) ([]drgreen.StrainRecord, error) {
	take = pagination.NormalizeLimit(take)
	rows, err := s.repo.ListActive(ctx, normalizeCountry(countryCode), take, pagination.Offset(page, take))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cached strains")
	}
	out := make([]drgreen.StrainRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToRecord(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, countryCode, drgreenStrainID string) (*drgreen.StrainRecord, error) {
	row, err := s.repo.FindByUpstreamID(ctx, normalizeCountry(countryCode), strings.TrimSpace(drgreenStrainID))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "strain not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cached strain")
	}
	rec := ToRecord(*row)
	return &rec, nil
}

func toModel(country string, rec drgreen.StrainRecord, raw json.RawMessage, now time.Time) models.Strain {
	row := models.Strain{
		DrGreenStrainID: strings.TrimSpace(rec.ID),
		CountryCode:     country,
		Name:            strings.TrimSpace(rec.Name),
		Description:     optional(rec.Description),
		StrainType:      optional(rec.Type),
		THCContent:      rec.THC,
		CBDContent:      rec.CBD,
		CBGContent:      rec.CBG,
		RetailPrice:     rec.RetailPrice,
		Stock:           rec.Stock,
		ImageURL:        optional(rec.ImageURL),
		Effects:         pq.StringArray(nonNil(rec.Effects)),
		Terpenes:        pq.StringArray(nonNil(rec.Terpenes)),
		IsActive:        true,
		SyncedAt:        &now,
	}
	if len(raw) > 0 {
		row.UpstreamPayload = datatypes.JSON(raw)
	}
	return row
}

// ToRecord renders a cached row in the upstream catalog shape.
func ToRecord(row models.Strain) drgreen.StrainRecord {
	return drgreen.StrainRecord{
		ID:          row.DrGreenStrainID,
		Name:        row.Name,
		Description: deref(row.Description),
		Type:        deref(row.StrainType),
		THC:         row.THCContent,
		CBD:         row.CBDContent,
		CBG:         row.CBGContent,
		RetailPrice: row.RetailPrice,
		Stock:       row.Stock,
		ImageURL:    deref(row.ImageURL),
		Effects:     nonNil(row.Effects),
		Terpenes:    nonNil(row.Terpenes),
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

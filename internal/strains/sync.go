package strains

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/greengate/pkg/drgreen"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

const (
	// ActionSyncStrains labels upstream calls made by the catalog sync.
	ActionSyncStrains = "sync-strains"
	strainsPath       = "strains"
	maxPages          = 50
)

// CountryReport is the outcome of syncing one country.
type CountryReport struct {
	Country string `json:"country"`
	Pages   int    `json:"pages"`
	CatalogResult
	Error string `json:"error,omitempty"`
}

// SyncReport aggregates every country in one run.
type SyncReport struct {
	Countries []CountryReport `json:"countries"`
}

// Syncer refreshes the strain cache from the upstream catalog.
type Syncer struct {
	upstream  drgreen.Doer
	svc       Service
	countries []string
	pageSize  int
	logg      *logger.Logger
}

// NewSyncer validates dependencies and normalizes the country list.
func NewSyncer(upstream drgreen.Doer, svc Service, countries []string, pageSize int, logg *logger.Logger) (*Syncer, error) {
	if upstream == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drgreen client required")
	}
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "strains service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	normalized := make([]string, 0, len(countries))
	seen := map[string]struct{}{}
	for _, c := range countries {
		code, ok := CountryCode(c)
		if !ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	if len(normalized) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "at least one catalog country required")
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Syncer{upstream: upstream, svc: svc, countries: normalized, pageSize: pageSize, logg: logg}, nil
}

// Countries returns the configured catalog countries.
func (s *Syncer) Countries() []string {
	return append([]string(nil), s.countries...)
}

// Run syncs every configured country sequentially. A failing country does not
// stop the others; the combined error lists all failures.
func (s *Syncer) Run(ctx context.Context) (*SyncReport, error) {
	return s.RunCountries(ctx, s.countries)
}

// RunCountries syncs the given countries sequentially.
func (s *Syncer) RunCountries(ctx context.Context, countries []string) (*SyncReport, error) {
	report := &SyncReport{Countries: make([]CountryReport, 0, len(countries))}
	var errs error
	for _, country := range countries {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		var (
			cr  CountryReport
			err error
		)
		if code, ok := CountryCode(country); ok {
			cr, err = s.syncCountry(ctx, code)
		} else {
			cr = CountryReport{Country: normalizeCountry(country)}
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown country code")
		}
		if err != nil {
			cr.Error = logger.RedactText(err.Error())
			errs = multierr.Append(errs, fmt.Errorf("sync strains %s: %w", cr.Country, err))
		}
		report.Countries = append(report.Countries, cr)
	}
	return report, errs
}

func (s *Syncer) syncCountry(ctx context.Context, country string) (CountryReport, error) {
	cr := CountryReport{Country: country}
	logCtx := s.logg.WithField(ctx, "country", country)

	var items []json.RawMessage
	complete := false
	for page := 1; page <= maxPages; page++ {
		resp, err := s.upstream.Do(ctx, drgreen.Request{
			Action: ActionSyncStrains,
			Method: http.MethodGet,
			Path:   strainsPath,
			Query: url.Values{
				"countryCode": []string{country},
				"orderBy":     []string{"desc"},
				"take":        []string{strconv.Itoa(s.pageSize)},
				"page":        []string{strconv.Itoa(page)},
			},
		})
		if err != nil {
			// keep what was fetched; without the full list nothing is deactivated
			if len(items) > 0 {
				if applied, applyErr := s.svc.ApplyCatalog(ctx, country, items, false); applyErr == nil {
					cr.CatalogResult = *applied
				}
			}
			return cr, err
		}
		cr.Pages = page
		payload := resp.Payload()
		if payload.Kind != drgreen.KindList {
			err := pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("strain catalog page %d resolved to %s, not a list", page, payload.Kind))
			if len(items) > 0 {
				if applied, applyErr := s.svc.ApplyCatalog(ctx, country, items, false); applyErr == nil {
					cr.CatalogResult = *applied
				}
			}
			return cr, err
		}
		items = append(items, payload.Items...)

		meta, ok := payload.Page()
		if !ok {
			complete = len(payload.Items) < s.pageSize
		} else {
			complete = !meta.HasNextPage
		}
		if complete || len(payload.Items) == 0 {
			complete = true
			break
		}
	}
	if !complete {
		s.logg.Warn(logCtx, fmt.Sprintf("strain catalog exceeded %d pages; skipping deactivation", maxPages))
	}

	applied, err := s.svc.ApplyCatalog(ctx, country, items, complete)
	if err != nil {
		return cr, err
	}
	cr.CatalogResult = *applied
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"pages":       cr.Pages,
		"upserted":    applied.Upserted,
		"skipped":     applied.Skipped,
		"deactivated": applied.Deactivated,
	}), "strain catalog synced")
	return cr, nil
}

// ParseCountries splits a comma separated override list.
func ParseCountries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if code := normalizeCountry(part); code != "" {
			out = append(out, code)
		}
	}
	return out
}

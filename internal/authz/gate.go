package authz

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/greengate/pkg/auth"
	"github.com/angelmondragon/greengate/pkg/config"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/metrics"
)

// NotAccessibleMessage is returned for every failed ownership check so a
// foreign resource cannot be told apart from a missing one.
const NotAccessibleMessage = "resource not accessible"

// RoleChecker answers whether a user holds the admin role.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// OwnerResolver returns the local user owning a referenced resource.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, kind ResourceKind, ref string) (uuid.UUID, error)
}

// Request is one authorization question.
type Request struct {
	Action      string
	Principal   *auth.Principal
	ResourceRef string
	CountryCode string
}

// Decision is the outcome of a successful Authorize call.
type Decision struct {
	Action      string
	Rule        Rule
	Principal   *auth.Principal
	IsAdmin     bool
	CountryCode string
}

// Gate enforces the per-action rules before anything is forwarded upstream.
type Gate struct {
	roles          RoleChecker
	owners         OwnerResolver
	openCountries  map[string]struct{}
	defaultCountry string
	metrics        *metrics.UpstreamMetrics
}

// NewGate builds a Gate from the catalog configuration.
func NewGate(cfg config.CatalogConfig, roles RoleChecker, owners OwnerResolver, m *metrics.UpstreamMetrics) (*Gate, error) {
	if roles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "role checker required")
	}
	if owners == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "owner resolver required")
	}
	open := make(map[string]struct{}, len(cfg.OpenCountries))
	for _, code := range cfg.OpenCountries {
		if normalized := normalizeCountry(code); normalized != "" {
			open[normalized] = struct{}{}
		}
	}
	defaultCountry := normalizeCountry(cfg.DefaultCountry)
	if defaultCountry == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "default catalog country required")
	}
	return &Gate{
		roles:          roles,
		owners:         owners,
		openCountries:  open,
		defaultCountry: defaultCountry,
		metrics:        m,
	}, nil
}

// DefaultCountry is used when a catalog request names no country.
func (g *Gate) DefaultCountry() string {
	return g.defaultCountry
}

// IsOpenCountry reports whether anonymous catalog browsing is allowed for code.
func (g *Gate) IsOpenCountry(code string) bool {
	_, ok := g.openCountries[normalizeCountry(code)]
	return ok
}

// Authorize applies the action's rule. Unknown actions are treated as admin-only.
func (g *Gate) Authorize(ctx context.Context, req Request) (*Decision, error) {
	rule := Classify(req.Action)
	decision := &Decision{Action: req.Action, Rule: rule, Principal: req.Principal}

	switch rule.Class {
	case ClassPublic:
		if rule.CountryGated {
			country := normalizeCountry(req.CountryCode)
			if country == "" {
				country = g.defaultCountry
			}
			decision.CountryCode = country
			if req.Principal == nil && !g.IsOpenCountry(country) {
				return nil, g.deny(rule.Class, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required for this country"))
			}
		}
		return decision, nil

	case ClassAuthenticated:
		if req.Principal == nil {
			return nil, g.deny(rule.Class, unauthenticated())
		}
		return decision, nil

	case ClassOwnership:
		if req.Principal == nil {
			return nil, g.deny(rule.Class, unauthenticated())
		}
		return g.authorizeOwnership(ctx, req, rule, decision)

	default:
		if req.Principal == nil {
			return nil, g.deny(ClassAdmin, unauthenticated())
		}
		isAdmin, err := g.roles.IsAdmin(ctx, req.Principal.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check admin role")
		}
		if !isAdmin {
			return nil, g.deny(ClassAdmin, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
		}
		decision.IsAdmin = true
		return decision, nil
	}
}

func (g *Gate) authorizeOwnership(ctx context.Context, req Request, rule Rule, decision *Decision) (*Decision, error) {
	ref := strings.TrimSpace(req.ResourceRef)
	if ref != "" {
		owner, err := g.owners.OwnerOf(ctx, rule.Resource, ref)
		switch {
		case err == nil:
			if owner == req.Principal.UserID {
				return decision, nil
			}
		case pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound, pkgerrors.CodeOf(err) == pkgerrors.CodeValidation:
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ownership lookup")
		}
	}

	// back-office access
	isAdmin, err := g.roles.IsAdmin(ctx, req.Principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check admin role")
	}
	if isAdmin {
		decision.IsAdmin = true
		return decision, nil
	}
	return nil, g.deny(rule.Class, Forbidden())
}

// Forbidden is the single error shape for failed ownership checks.
func Forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, NotAccessibleMessage)
}

func unauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}

func (g *Gate) deny(class AccessClass, err error) error {
	g.metrics.IncDenial(string(class))
	return err
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

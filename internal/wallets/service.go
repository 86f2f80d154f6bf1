package wallets

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/db/models"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// Service links wallets to the session user's email.
type Service interface {
	Link(ctx context.Context, userID uuid.UUID, address, email string) (*models.WalletEmailMapping, error)
	Lookup(ctx context.Context, address string) (*models.WalletEmailMapping, error)
}

type service struct {
	repo Repository
}

// NewService wires the wallet mapping service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallets repository required")
	}
	return &service{repo: repo}, nil
}

// NormalizeAddress lower-cases and validates an EVM address.
func NormalizeAddress(address string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !addressPattern.MatchString(normalized) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet address")
	}
	return normalized, nil
}

func (s *service) Link(ctx context.Context, userID uuid.UUID, address, email string) (*models.WalletEmailMapping, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	existing, err := s.repo.FindByAddress(ctx, normalized)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet already linked")
		}
		if existing.Email != email {
			if err := s.repo.UpdateEmail(ctx, normalized, email); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet mapping")
			}
			existing.Email = email
		}
		return existing, nil
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet mapping")
	}

	mapping := &models.WalletEmailMapping{UserID: userID, WalletAddress: normalized, Email: email}
	if err := s.repo.Create(ctx, mapping); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "wallet already linked")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet mapping")
	}
	return mapping, nil
}

func (s *service) Lookup(ctx context.Context, address string) (*models.WalletEmailMapping, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	mapping, err := s.repo.FindByAddress(ctx, normalized)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not linked")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet mapping")
	}
	return mapping, nil
}

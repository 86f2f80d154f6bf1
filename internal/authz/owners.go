package authz

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

// ClientOwners resolves upstream client ids to local users.
type ClientOwners interface {
	OwnerOf(ctx context.Context, drgreenClientID string) (uuid.UUID, error)
}

// OrderOwners resolves local or upstream order ids to local users.
type OrderOwners interface {
	OwnerOf(ctx context.Context, ref string) (uuid.UUID, error)
}

// Owners dispatches ownership lookups to the client and order mirrors.
type Owners struct {
	Clients ClientOwners
	Orders  OrderOwners
}

// OwnerOf implements OwnerResolver with exactly one lookup per call.
func (o Owners) OwnerOf(ctx context.Context, kind ResourceKind, ref string) (uuid.UUID, error) {
	switch kind {
	case ResourceClient:
		if o.Clients != nil {
			return o.Clients.OwnerOf(ctx, ref)
		}
	case ResourceOrder:
		if o.Orders != nil {
			return o.Orders.OwnerOf(ctx, ref)
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown resource")
}

package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/greengate/internal/clients"
	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/types"
)

const discoveryTake = 10

type createClientParams struct {
	FirstName        string                 `json:"firstName" validate:"required,max=100"`
	LastName         string                 `json:"lastName" validate:"required,max=100"`
	Email            string                 `json:"email" validate:"omitempty,email"`
	PhoneCode        string                 `json:"phoneCode" validate:"omitempty,max=8"`
	PhoneCountryCode string                 `json:"phoneCountryCode" validate:"omitempty,max=3"`
	ContactNumber    string                 `json:"contactNumber" validate:"omitempty,max=20"`
	Shipping         *types.ShippingAddress `json:"shipping" validate:"required"`
	MedicalRecord    map[string]any         `json:"medicalRecord,omitempty"`
}

// createClient registers the session user upstream and mirrors the new client.
func (d *Dispatcher) createClient(ctx context.Context, c *call) (any, error) {
	var in createClientParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	if err := d.clients.EnsureRegistrable(ctx, c.Principal.UserID); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(c.Principal.Email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	addr := in.Shipping.Normalize()

	body := map[string]any{
		"firstName": strings.TrimSpace(in.FirstName),
		"lastName":  strings.TrimSpace(in.LastName),
		"email":     email,
		"shipping":  addr,
	}
	if in.PhoneCode != "" {
		body["phoneCode"] = in.PhoneCode
	}
	if in.PhoneCountryCode != "" {
		body["phoneCountryCode"] = in.PhoneCountryCode
	}
	if in.ContactNumber != "" {
		body["contactNumber"] = in.ContactNumber
	}
	if len(in.MedicalRecord) > 0 {
		body["medicalRecord"] = in.MedicalRecord
	}

	resp, err := d.send(ctx, c, body)
	if err != nil {
		return nil, err
	}
	payload := resp.Payload()
	rec, ok := drgreen.DecodeObject[drgreen.ClientRecord](payload)
	if !ok || rec.UpstreamID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "upstream response did not include a client id")
	}
	if rec.Shipping == nil {
		rec.Shipping = &addr
	}

	mirrored, err := d.clients.Mirror(ctx, clients.MirrorInput{
		UserID: c.Principal.UserID,
		Email:  email,
		Record: rec,
		Raw:    payload.Object,
	})
	if err != nil {
		return nil, err
	}
	d.record(ctx, journey.Entry{
		UserID:    c.Principal.UserID,
		ClientID:  mirrored.Client.ID,
		EventType: enums.JourneyEventClientRegistered,
		Action:    c.Action,
		Metadata:  map[string]any{"drgreenClientId": rec.UpstreamID()},
	})
	return payload.Value(), nil
}

// getMyClient returns the session user's client. When nothing is mirrored
// yet the upstream client list is searched by the session email and a match
// is linked to the user.
func (d *Dispatcher) getMyClient(ctx context.Context, c *call) (any, error) {
	local, err := d.clients.GetByUser(ctx, c.Principal.UserID)
	switch {
	case err == nil && local.DrGreenClientID != nil:
		return d.refreshClient(ctx, c, local)
	case err != nil && pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound:
		return nil, err
	}
	return d.discoverClient(ctx, c)
}

func (d *Dispatcher) refreshClient(ctx context.Context, c *call, local *models.Client) (any, error) {
	c.Params["clientId"] = *local.DrGreenClientID
	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	payload := resp.Payload()
	if rec, ok := drgreen.DecodeObject[drgreen.ClientRecord](payload); ok && rec.UpstreamID() == *local.DrGreenClientID {
		if _, err := d.clients.Mirror(ctx, clients.MirrorInput{
			UserID: local.UserID,
			Email:  c.Principal.Email,
			Record: rec,
			Raw:    payload.Object,
		}); err != nil {
			d.logg.Warn(ctx, "client mirror refresh failed: "+err.Error())
		}
	}
	return payload.Value(), nil
}

func (d *Dispatcher) discoverClient(ctx context.Context, c *call) (any, error) {
	email := strings.ToLower(strings.TrimSpace(c.Principal.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not registered")
	}
	resp, err := d.upstream.Do(ctx, drgreen.Request{
		Action: c.Action,
		Method: http.MethodGet,
		Path:   "dapp/clients",
		Query: url.Values{
			"search":   {email},
			"searchBy": {"email"},
			"take":     {strconv.Itoa(discoveryTake)},
		},
	})
	if err != nil {
		return nil, err
	}

	payload := resp.Payload()
	for _, raw := range payload.Items {
		var rec drgreen.ClientRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec.Email), email) || rec.UpstreamID() == "" {
			continue
		}
		mirrored, err := d.clients.Mirror(ctx, clients.MirrorInput{
			UserID: c.Principal.UserID,
			Email:  email,
			Record: rec,
			Raw:    raw,
		})
		if err != nil {
			return nil, err
		}
		d.record(ctx, journey.Entry{
			UserID:    c.Principal.UserID,
			ClientID:  mirrored.Client.ID,
			EventType: enums.JourneyEventClientDiscovered,
			Action:    c.Action,
			Metadata:  map[string]any{"drgreenClientId": rec.UpstreamID()},
		})
		return raw, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not registered")
}

type linkWalletParams struct {
	WalletAddress string `json:"walletAddress" validate:"required"`
}

func (d *Dispatcher) linkWallet(ctx context.Context, c *call) (any, error) {
	var in linkWalletParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	mapping, err := d.wallets.Link(ctx, c.Principal.UserID, in.WalletAddress, c.Principal.Email)
	if err != nil {
		return nil, err
	}
	entry := journey.Entry{
		UserID:    c.Principal.UserID,
		EventType: enums.JourneyEventWalletLinked,
		Action:    c.Action,
		Metadata:  map[string]any{"walletAddress": mapping.WalletAddress},
	}
	if local, err := d.clients.GetByUser(ctx, c.Principal.UserID); err == nil {
		entry.ClientID = local.ID
	}
	d.record(ctx, entry)
	return newWalletView(mapping), nil
}

type updateShippingParams struct {
	ClientID string                 `json:"clientId" validate:"required"`
	Shipping *types.ShippingAddress `json:"shipping" validate:"required"`
}

func (d *Dispatcher) updateShipping(ctx context.Context, c *call) (any, error) {
	var in updateShippingParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	addr := in.Shipping.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	resp, err := d.send(ctx, c, map[string]any{"shipping": addr})
	if err != nil {
		return nil, err
	}

	local, err := d.mirroredClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		if err := d.clients.UpdateShipping(ctx, local.ID, addr); err != nil {
			return nil, err
		}
		d.record(ctx, journey.Entry{
			UserID:    local.UserID,
			ClientID:  local.ID,
			EventType: enums.JourneyEventShippingUpdated,
			Action:    c.Action,
			Metadata:  map[string]any{"countryCode": addr.CountryCode},
		})
	}
	return resp.Payload().Value(), nil
}

// mirroredClient returns the local client for an upstream id, or nil when
// the client is not mirrored (admins may act on unmirrored clients).
func (d *Dispatcher) mirroredClient(ctx context.Context, drgreenClientID string) (*models.Client, error) {
	local, err := d.clients.GetByDrGreenID(ctx, drgreenClientID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return local, nil
}

// requireClient is mirroredClient for actions that cannot run without a local row.
func (d *Dispatcher) requireClient(ctx context.Context, drgreenClientID string) (*models.Client, error) {
	local, err := d.mirroredClient(ctx, drgreenClientID)
	if err != nil {
		return nil, err
	}
	if local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client is not linked to a local user")
	}
	return local, nil
}

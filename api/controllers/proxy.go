package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/greengate/api/middleware"
	"github.com/angelmondragon/greengate/api/responses"
	"github.com/angelmondragon/greengate/api/validators"
	"github.com/angelmondragon/greengate/internal/proxy"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

type dispatcher interface {
	Dispatch(ctx context.Context, req proxy.Request) proxy.Result
}

type proxyRequest struct {
	Action string       `json:"action"`
	Data   proxy.Params `json:"data"`
}

// Proxy is the single entry point for frontend calls to Dr. Green.
// Malformed bodies are reported in the envelope like any other failure.
func Proxy(d dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "proxy dispatcher unavailable"))
			return
		}

		var body proxyRequest
		if err := validators.DecodeJSONBodyLenient(r, &body); err != nil {
			res := proxy.Result{Err: err}
			logg.Warn(logg.WithAction(r.Context(), "decode"), "malformed proxy request")
			responses.WriteEnvelope(w, res.HTTPStatus(), res.Envelope())
			return
		}

		res := d.Dispatch(r.Context(), proxy.Request{
			Action:    body.Action,
			Params:    body.Data,
			Principal: middleware.PrincipalFromContext(r.Context()),
		})
		responses.WriteEnvelope(w, res.HTTPStatus(), res.Envelope())
	}
}

package service

import (
	"context"
	"errors"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/metrics"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"
	"pmconsole/internal/session"

	"github.com/rs/zerolog"
)

// caller is the shared path every service takes to the backend: session
// check, transport, reconciliation.
type caller struct {
	backend domain.Backend
	logger  *zerolog.Logger
}

// authorize returns the user-facing sentence when the token cannot be used.
func authorize(token string) (string, bool) {
	switch err := session.Check(token); {
	case err == nil:
		return "", true
	case errors.Is(err, session.ErrExpired):
		return models.MsgSessionExpired, false
	default:
		return models.MsgNoToken, false
	}
}

// fetch runs one request and reconciles the response. The second return value
// is the transport error, if any, for callers that distinguish it.
func (c caller) fetch(
	ctx context.Context,
	token, operation string,
	req backend.Request,
	opts reconcile.Options,
	table backend.StatusMessages,
) (reconcile.Outcome, *backend.TransportError) {
	if msg, ok := authorize(token); !ok {
		metrics.IncVerdict(operation, "unauthorized")
		return reconcile.Failure(msg, models.ErrorGeneral), nil
	}

	raw, err := c.backend.Do(ctx, token, req)
	if err != nil {
		var te *backend.TransportError
		if !errors.As(err, &te) {
			te = &backend.TransportError{Endpoint: req.Path, Err: err}
		}
		metrics.IncVerdict(operation, "transport_error")
		c.logger.Warn().Err(err).Str("operation", operation).Msg("backend call failed")
		return reconcile.Failure(backend.MessageFor(err, table), models.ErrorGeneral), te
	}

	out := reconcile.Reconcile(raw, opts)
	metrics.IncVerdict(operation, string(out.Verdict))
	if !out.OK() {
		c.logger.Debug().Str("operation", operation).Str("verdict", string(out.Verdict)).Str("message", out.Message).Msg("backend reported failure")
	}
	return out, nil
}

// objectResult wraps an object payload, failing when the payload is an array.
func objectResult(out reconcile.Outcome) models.Result[map[string]any] {
	if !out.OK() {
		return models.FailAs[map[string]any](out.Result())
	}
	obj, ok := out.Object()
	if !ok {
		return models.Fail[map[string]any](models.MsgUnexpected, models.ErrorGeneral)
	}
	r := models.Ok(obj, out.Message)
	r.IsBlocked = out.IsBlocked
	return r
}

// listResult returns the payload as a list of objects. An object payload
// holding a "data" array is unwrapped.
func listResult(out reconcile.Outcome) models.Result[[]map[string]any] {
	if !out.OK() {
		return models.FailAs[[]map[string]any](out.Result())
	}
	items := asObjects(out.Payload)
	if items == nil {
		if obj, ok := out.Object(); ok {
			items = asObjects(obj["data"])
		}
	}
	if items == nil {
		items = []map[string]any{}
	}
	return models.Ok(items, out.Message)
}

func asObjects(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

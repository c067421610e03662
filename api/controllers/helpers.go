package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/api/middleware"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

func requireActor(r *http.Request) (permissions.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return permissions.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actor, nil
}

func parseIDParam(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label+" id")
	}
	return id, nil
}

func parseOptionalIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

func parsePage(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for i, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").
				WithDetails(map[string]any{"field": field, "index": i})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func inquiryContext(r *http.Request, logg *logger.Logger, inquiryID uuid.UUID) context.Context {
	if logg == nil {
		return r.Context()
	}
	return logg.WithInquiryID(r.Context(), inquiryID.String())
}

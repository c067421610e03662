package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// QuoteWorkflow is the slice of the workflow engine the quote routes use.
type QuoteWorkflow interface {
	GenerateQuote(ctx context.Context, inquiryID uuid.UUID, validityDays int, actor permissions.Actor) (*models.Quote, error)
	SendQuote(ctx context.Context, quoteID uuid.UUID, actor permissions.Actor) (*models.Quote, error)
	RecordQuoteOutcome(ctx context.Context, quoteID uuid.UUID, outcome enums.QuoteStatus, actor permissions.Actor) (*workflow.QuoteOutcomeResult, error)
	GetQuote(ctx context.Context, quoteID uuid.UUID, actor permissions.Actor) (*models.Quote, error)
}

type generateQuoteRequest struct {
	ValidityDays int `json:"validityDays" validate:"min=0,max=365"`
}

type quoteOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=ACCEPTED REJECTED accepted rejected"`
}

// GenerateQuote prices a fully costed inquiry into a DRAFT quote.
func GenerateQuote(svc QuoteWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := parseIDParam(r, "inquiryId", "inquiry")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req generateQuoteRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.GenerateQuote(inquiryContext(r, logg, inquiryID), inquiryID, req.ValidityDays, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workflow.QuoteFromModel(quote))
	}
}

// SendQuote marks a DRAFT quote SENT and emails the customer.
func SendQuote(svc QuoteWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := parseIDParam(r, "quoteId", "quote")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.SendQuote(r.Context(), quoteID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.QuoteFromModel(quote))
	}
}

// RecordQuoteOutcome accepts or rejects a SENT quote.
func RecordQuoteOutcome(svc QuoteWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := parseIDParam(r, "quoteId", "quote")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req quoteOutcomeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordQuoteOutcome(r.Context(), quoteID, enums.QuoteStatus(strings.ToUpper(req.Outcome)), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.QuoteOutcomeFromResult(result))
	}
}

// GetQuote returns one quote.
func GetQuote(svc QuoteWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quoteID, err := parseIDParam(r, "quoteId", "quote")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.GetQuote(r.Context(), quoteID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.QuoteFromModel(quote))
	}
}

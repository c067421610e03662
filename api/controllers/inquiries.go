package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

// InquiryWorkflow is the slice of the workflow engine the inquiry routes use.
type InquiryWorkflow interface {
	CreateInquiry(ctx context.Context, input workflow.CreateInquiryInput, actor permissions.Actor) (*models.Inquiry, error)
	SubmitInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	CancelInquiry(ctx context.Context, inquiryID uuid.UUID, reason string, actor permissions.Actor) (*models.Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	ListInquiries(ctx context.Context, params workflow.ListInquiriesParams, actor permissions.Actor) (*pagination.Page[models.Inquiry], error)
}

type createInquiryRequest struct {
	CustomerID  string                     `json:"customerId" validate:"required,uuid"`
	Title       string                     `json:"title" validate:"required,max=200"`
	Description *string                    `json:"description" validate:"omitempty,max=4000"`
	Priority    string                     `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Deadline    *time.Time                 `json:"deadline"`
	Items       []createInquiryItemRequest `json:"items" validate:"dive"`
}

type createInquiryItemRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	Unit        string  `json:"unit" validate:"required,max=32"`
}

type cancelInquiryRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// CreateInquiry opens a DRAFT inquiry with its items.
func CreateInquiry(svc InquiryWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createInquiryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := workflow.CreateInquiryInput{
			CustomerID:  uuid.MustParse(req.CustomerID),
			Title:       validators.SanitizeString(req.Title, 200),
			Description: req.Description,
			Priority:    enums.InquiryPriority(req.Priority),
			Deadline:    req.Deadline,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, workflow.ItemInput{
				Name:        validators.SanitizeString(item.Name, 200),
				Description: item.Description,
				Quantity:    item.Quantity,
				Unit:        validators.SanitizeString(item.Unit, 32),
			})
		}

		inquiry, err := svc.CreateInquiry(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, workflow.InquiryFromModel(inquiry))
	}
}

// SubmitInquiry moves a DRAFT inquiry to SUBMITTED.
func SubmitInquiry(svc InquiryWorkflow, logg *logger.Logger) http.HandlerFunc {
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

		inquiry, err := svc.SubmitInquiry(inquiryContext(r, logg, inquiryID), inquiryID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.InquiryFromModel(inquiry))
	}
}

// CancelInquiry cancels an open inquiry.
func CancelInquiry(svc InquiryWorkflow, logg *logger.Logger) http.HandlerFunc {
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

		var req cancelInquiryRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, err := svc.CancelInquiry(inquiryContext(r, logg, inquiryID), inquiryID, validators.SanitizeString(req.Reason, 2000), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.InquiryFromModel(inquiry))
	}
}

// GetInquiry returns one inquiry with its items and cost calculations.
func GetInquiry(svc InquiryWorkflow, logg *logger.Logger) http.HandlerFunc {
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

		inquiry, err := svc.GetInquiry(r.Context(), inquiryID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.InquiryFromModel(inquiry))
	}
}

// ListInquiries pages inquiries newest first.
func ListInquiries(svc InquiryWorkflow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := workflow.ListInquiriesParams{Limit: page.Limit, Cursor: page.Cursor}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseInquiryStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = status
		}
		customerID, err := parseOptionalIDQuery(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if customerID != nil {
			params.CustomerID = *customerID
		}
		mine, err := validators.ParseQueryBool(r, "mine")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Mine = mine != nil && *mine

		list, err := svc.ListInquiries(r.Context(), params, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, workflow.InquiryPage(list))
	}
}

package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

type stubInquiries struct {
	createFn func(ctx context.Context, input workflow.CreateInquiryInput, actor permissions.Actor) (*models.Inquiry, error)
	submitFn func(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	cancelFn func(ctx context.Context, id uuid.UUID, reason string, actor permissions.Actor) (*models.Inquiry, error)
	getFn    func(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Inquiry, error)
	listFn   func(ctx context.Context, params workflow.ListInquiriesParams, actor permissions.Actor) (*pagination.Page[models.Inquiry], error)
}

func (s *stubInquiries) CreateInquiry(ctx context.Context, input workflow.CreateInquiryInput, actor permissions.Actor) (*models.Inquiry, error) {
	return s.createFn(ctx, input, actor)
}

func (s *stubInquiries) SubmitInquiry(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Inquiry, error) {
	return s.submitFn(ctx, id, actor)
}

func (s *stubInquiries) CancelInquiry(ctx context.Context, id uuid.UUID, reason string, actor permissions.Actor) (*models.Inquiry, error) {
	return s.cancelFn(ctx, id, reason, actor)
}

func (s *stubInquiries) GetInquiry(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Inquiry, error) {
	return s.getFn(ctx, id, actor)
}

func (s *stubInquiries) ListInquiries(ctx context.Context, params workflow.ListInquiriesParams, actor permissions.Actor) (*pagination.Page[models.Inquiry], error) {
	return s.listFn(ctx, params, actor)
}

var salesActor = permissions.Actor{UserID: uuid.New(), Role: enums.UserRoleSales}

func TestCreateInquiryMapsRequest(t *testing.T) {
	customerID := uuid.New()
	var captured workflow.CreateInquiryInput
	svc := &stubInquiries{
		createFn: func(_ context.Context, input workflow.CreateInquiryInput, actor permissions.Actor) (*models.Inquiry, error) {
			captured = input
			if actor.UserID != salesActor.UserID {
				t.Fatalf("unexpected actor %s", actor.UserID)
			}
			return &models.Inquiry{ID: uuid.New(), CustomerID: input.CustomerID, Title: input.Title, Status: enums.InquiryStatusDraft}, nil
		},
	}

	body := `{"customerId":"` + customerID.String() + `","title":"  Hinges ","priority":"HIGH","items":[{"name":"Hinge","quantity":10,"unit":"pcs"}]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body)), salesActor)
	resp := httptest.NewRecorder()
	CreateInquiry(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.CustomerID != customerID || captured.Title != "Hinges" || captured.Priority != enums.InquiryPriorityHigh {
		t.Fatalf("unexpected input %+v", captured)
	}
	if len(captured.Items) != 1 || captured.Items[0].Quantity != 10 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}
	var dto workflow.InquiryDTO
	decodeData(t, resp, &dto)
	if dto.Status != enums.InquiryStatusDraft || dto.CustomerID != customerID {
		t.Fatalf("unexpected response %+v", dto)
	}
}

func TestCreateInquiryRejectsInvalidBody(t *testing.T) {
	svc := &stubInquiries{
		createFn: func(context.Context, workflow.CreateInquiryInput, permissions.Actor) (*models.Inquiry, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	cases := map[string]string{
		"missing title":  `{"customerId":"` + uuid.NewString() + `"}`,
		"bad customer":   `{"customerId":"nope","title":"x"}`,
		"bad priority":   `{"customerId":"` + uuid.NewString() + `","title":"x","priority":"SOON"}`,
		"zero quantity":  `{"customerId":"` + uuid.NewString() + `","title":"x","items":[{"name":"a","quantity":0,"unit":"pcs"}]}`,
		"unknown fields": `{"customerId":"` + uuid.NewString() + `","title":"x","color":"red"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body)), salesActor)
			resp := httptest.NewRecorder()
			CreateInquiry(svc, testLogger())(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestInquiryRoutesRequireActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CreateInquiry(&stubInquiries{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSubmitInquiryReportsInvalidTransition(t *testing.T) {
	inquiryID := uuid.New()
	svc := &stubInquiries{
		submitFn: func(_ context.Context, id uuid.UUID, _ permissions.Actor) (*models.Inquiry, error) {
			if id != inquiryID {
				t.Fatalf("unexpected inquiry %s", id)
			}
			return nil, pkgerrors.InvalidTransition("inquiry", id.String(), string(enums.InquiryStatusSubmitted), string(enums.InquiryStatusSubmitted))
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/"+inquiryID.String()+"/submit", nil), salesActor)
	req = withURLParams(req, "inquiryId", inquiryID.String())
	resp := httptest.NewRecorder()
	SubmitInquiry(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestSubmitInquiryRejectsMalformedID(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/abc/submit", nil), salesActor)
	req = withURLParams(req, "inquiryId", "abc")
	resp := httptest.NewRecorder()
	SubmitInquiry(&stubInquiries{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelInquiryAllowsEmptyBody(t *testing.T) {
	inquiryID := uuid.New()
	reason := "unset"
	svc := &stubInquiries{
		cancelFn: func(_ context.Context, id uuid.UUID, r string, _ permissions.Actor) (*models.Inquiry, error) {
			reason = r
			return &models.Inquiry{ID: id, Status: enums.InquiryStatusCancelled}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/", nil), salesActor)
	req = withURLParams(req, "inquiryId", inquiryID.String())
	resp := httptest.NewRecorder()
	CancelInquiry(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if reason != "" {
		t.Fatalf("expected empty reason got %q", reason)
	}
}

func TestListInquiriesParsesFilters(t *testing.T) {
	customerID := uuid.New()
	var captured workflow.ListInquiriesParams
	svc := &stubInquiries{
		listFn: func(_ context.Context, params workflow.ListInquiriesParams, _ permissions.Actor) (*pagination.Page[models.Inquiry], error) {
			captured = params
			return &pagination.Page[models.Inquiry]{
				Items:      []models.Inquiry{{ID: uuid.New(), CustomerID: customerID, Status: enums.InquiryStatusSubmitted}},
				NextCursor: "next",
			}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/inquiries?status=submitted&customerId="+customerID.String()+"&mine=true&limit=10", nil), salesActor)
	resp := httptest.NewRecorder()
	ListInquiries(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Status != enums.InquiryStatusSubmitted || captured.CustomerID != customerID || !captured.Mine || captured.Limit != 10 {
		t.Fatalf("unexpected params %+v", captured)
	}
	var page pagination.Page[workflow.InquiryDTO]
	decodeData(t, resp, &page)
	if len(page.Items) != 1 || page.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListInquiriesRejectsUnknownStatus(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/inquiries?status=LOST", nil), salesActor)
	resp := httptest.NewRecorder()
	ListInquiries(&stubInquiries{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

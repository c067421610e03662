package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
)

type stubItems struct {
	assignFn   func(ctx context.Context, ids []uuid.UUID, assignee uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error)
	unassignFn func(ctx context.Context, ids []uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error)
	costFn     func(ctx context.Context, itemID uuid.UUID, input workflow.CostInput, actor permissions.Actor) (*models.CostCalculation, error)
	approvalFn func(ctx context.Context, costID uuid.UUID, reason string, actor permissions.Actor) (*models.Approval, error)
	decideFn   func(ctx context.Context, approvalID uuid.UUID, decision enums.ApprovalStatus, comment string, actor permissions.Actor) (*models.Approval, error)
}

func (s *stubItems) AssignItems(ctx context.Context, ids []uuid.UUID, assignee uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error) {
	return s.assignFn(ctx, ids, assignee, actor)
}

func (s *stubItems) UnassignItems(ctx context.Context, ids []uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error) {
	return s.unassignFn(ctx, ids, actor)
}

func (s *stubItems) RecordCostCalculation(ctx context.Context, itemID uuid.UUID, input workflow.CostInput, actor permissions.Actor) (*models.CostCalculation, error) {
	return s.costFn(ctx, itemID, input, actor)
}

func (s *stubItems) RequestCostApproval(ctx context.Context, costID uuid.UUID, reason string, actor permissions.Actor) (*models.Approval, error) {
	return s.approvalFn(ctx, costID, reason, actor)
}

func (s *stubItems) ApproveCost(ctx context.Context, approvalID uuid.UUID, decision enums.ApprovalStatus, comment string, actor permissions.Actor) (*models.Approval, error) {
	return s.decideFn(ctx, approvalID, decision, comment, actor)
}

var managerActor = permissions.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}

func TestAssignItemsPassesBatch(t *testing.T) {
	itemA, itemB, assignee := uuid.New(), uuid.New(), uuid.New()
	svc := &stubItems{
		assignFn: func(_ context.Context, ids []uuid.UUID, to uuid.UUID, _ permissions.Actor) (*workflow.AssignmentResult, error) {
			if len(ids) != 2 || ids[0] != itemA || ids[1] != itemB {
				t.Fatalf("unexpected ids %v", ids)
			}
			return &workflow.AssignmentResult{AssigneeID: to, ItemIDs: ids}, nil
		},
	}

	body := `{"itemIds":["` + itemA.String() + `","` + itemB.String() + `"],"assigneeId":"` + assignee.String() + `"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/items/assign", strings.NewReader(body)), managerActor)
	resp := httptest.NewRecorder()
	AssignItems(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var result workflow.AssignmentResult
	decodeData(t, resp, &result)
	if result.AssigneeID != assignee || len(result.ItemIDs) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAssignItemsRejectsMalformedItemID(t *testing.T) {
	body := `{"itemIds":["` + uuid.NewString() + `","bogus"],"assigneeId":"` + uuid.NewString() + `"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/items/assign", strings.NewReader(body)), managerActor)
	resp := httptest.NewRecorder()
	AssignItems(&stubItems{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUnassignItemsRequiresIDs(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/items/unassign", strings.NewReader(`{"itemIds":[]}`)), managerActor)
	resp := httptest.NewRecorder()
	UnassignItems(&stubItems{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRecordCostDecodesDecimals(t *testing.T) {
	itemID := uuid.New()
	vp := permissions.Actor{UserID: uuid.New(), Role: enums.UserRoleVP}
	var captured workflow.CostInput
	svc := &stubItems{
		costFn: func(_ context.Context, id uuid.UUID, input workflow.CostInput, _ permissions.Actor) (*models.CostCalculation, error) {
			if id != itemID {
				t.Fatalf("unexpected item %s", id)
			}
			captured = input
			return &models.CostCalculation{ID: uuid.New(), ItemID: id, Total: decimal.RequireFromString("126.50")}, nil
		},
	}

	body := `{"materialCost":"100.00","laborCost":10,"overheadCost":"0","otherCost":"0","marginPercent":"15"}`
	req := withActor(httptest.NewRequest(http.MethodPut, "/api/v1/items/"+itemID.String()+"/cost", strings.NewReader(body)), vp)
	req = withURLParams(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	RecordCost(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !captured.MaterialCost.Equal(decimal.NewFromInt(100)) || !captured.LaborCost.Equal(decimal.NewFromInt(10)) || !captured.MarginPercent.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected input %+v", captured)
	}
	var dto workflow.CostDTO
	decodeData(t, resp, &dto)
	if !dto.Total.Equal(decimal.RequireFromString("126.5")) {
		t.Fatalf("unexpected total %s", dto.Total)
	}
}

func TestRequestCostApprovalCreates(t *testing.T) {
	costID := uuid.New()
	svc := &stubItems{
		approvalFn: func(_ context.Context, id uuid.UUID, reason string, _ permissions.Actor) (*models.Approval, error) {
			if reason != "large job" {
				t.Fatalf("unexpected reason %q", reason)
			}
			return &models.Approval{ID: uuid.New(), CostCalculationID: id, Status: enums.ApprovalStatusPending}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":" large job "}`)), managerActor)
	req = withURLParams(req, "costId", costID.String())
	resp := httptest.NewRecorder()
	RequestCostApproval(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var dto workflow.ApprovalDTO
	decodeData(t, resp, &dto)
	if dto.CostCalculationID != costID || dto.Status != enums.ApprovalStatusPending {
		t.Fatalf("unexpected approval %+v", dto)
	}
}

func TestDecideApprovalNormalizesDecision(t *testing.T) {
	approvalID := uuid.New()
	var decision enums.ApprovalStatus
	svc := &stubItems{
		decideFn: func(_ context.Context, id uuid.UUID, d enums.ApprovalStatus, _ string, _ permissions.Actor) (*models.Approval, error) {
			decision = d
			return &models.Approval{ID: id, Status: d}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"decision":"approved"}`)), managerActor)
	req = withURLParams(req, "approvalId", approvalID.String())
	resp := httptest.NewRecorder()
	DecideApproval(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if decision != enums.ApprovalStatusApproved {
		t.Fatalf("unexpected decision %s", decision)
	}
}

func TestDecideApprovalSurfacesForbidden(t *testing.T) {
	svc := &stubItems{
		decideFn: func(context.Context, uuid.UUID, enums.ApprovalStatus, string, permissions.Actor) (*models.Approval, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions")
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"decision":"REJECTED"}`)), salesActor)
	req = withURLParams(req, "approvalId", uuid.NewString())
	resp := httptest.NewRecorder()
	DecideApproval(svc, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

type stubRecommender struct {
	rec   *assignment.Recommendation
	calls int
}

func (s *stubRecommender) Recommend(context.Context) (*assignment.Recommendation, error) {
	s.calls++
	return s.rec, nil
}

func TestWorkloadReturnsRanking(t *testing.T) {
	vp := assignment.Assignee{ID: uuid.New(), Name: "Vera", Role: enums.UserRoleVP}
	svc := &stubRecommender{rec: &assignment.Recommendation{
		Assignees:      []assignment.Ranked{{Assignee: vp, Workload: assignment.Workload{Pending: 2}}},
		AveragePending: 2,
		Factor:         1.5,
	}}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/workload", nil), managerActor)
	resp := httptest.NewRecorder()
	Workload(svc, permissions.MustDefault(), testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var rec assignment.Recommendation
	decodeData(t, resp, &rec)
	if len(rec.Assignees) != 1 || rec.Assignees[0].ID != vp.ID || rec.Assignees[0].Pending != 2 {
		t.Fatalf("unexpected recommendation %+v", rec)
	}
	if !rec.CanAssign {
		t.Fatal("managers may assign from the ranking")
	}
}

func TestWorkloadFlagsReadOnlyCallers(t *testing.T) {
	svc := &stubRecommender{rec: &assignment.Recommendation{Factor: 1.5}}
	viewer := permissions.Actor{UserID: uuid.New(), Role: enums.UserRoleViewer}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/workload", nil), viewer)
	resp := httptest.NewRecorder()
	Workload(svc, permissions.MustDefault(), testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var rec assignment.Recommendation
	decodeData(t, resp, &rec)
	if rec.CanAssign {
		t.Fatal("viewers cannot assign items")
	}
}

func TestWorkloadForbiddenForProduction(t *testing.T) {
	svc := &stubRecommender{}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/workload", nil), productionActor)
	resp := httptest.NewRecorder()
	Workload(svc, permissions.MustDefault(), testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("recommender should not be called")
	}
}

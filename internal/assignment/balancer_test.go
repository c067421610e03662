package assignment

import (
	"testing"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

func TestRankOrdersByPendingThenName(t *testing.T) {
	ana := Assignee{ID: uuid.New(), Name: "Ana", Role: enums.UserRoleVP}
	bob := Assignee{ID: uuid.New(), Name: "bob", Role: enums.UserRoleVPP}
	cy := Assignee{ID: uuid.New(), Name: "Cy", Role: enums.UserRoleVP}

	ranked := Rank([]Assignee{cy, bob, ana}, Workloads{
		ana.ID: {Pending: 4},
		bob.ID: {Pending: 1, Completed: 9},
		cy.ID:  {Pending: 1},
	})

	want := []uuid.UUID{bob.ID, cy.ID, ana.ID}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("position %d: expected %s got %s (%s)", i, id, ranked[i].ID, ranked[i].Name)
		}
	}
	if ranked[0].Completed != 9 {
		t.Fatalf("expected workload to be carried, got %+v", ranked[0])
	}
}

func TestRankBreaksNameTiesByID(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	ranked := Rank([]Assignee{{ID: high, Name: "Sam"}, {ID: low, Name: "Sam"}}, Workloads{})
	if ranked[0].ID != low {
		t.Fatalf("expected id tie-break, got %s first", ranked[0].ID)
	}
}

func TestIsOverloaded(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	workloads := Workloads{a: {Pending: 6}, b: {Pending: 2}, c: {Pending: 1}}
	// average 3, threshold 4.5
	if !IsOverloaded(a, workloads, 1.5) {
		t.Fatal("expected a to be overloaded")
	}
	if IsOverloaded(b, workloads, 1.5) {
		t.Fatal("b is under the threshold")
	}
	if IsOverloaded(a, workloads, 2.5) {
		t.Fatal("a is under a 2.5 factor")
	}
	if !IsOverloaded(a, workloads, 0) {
		t.Fatal("non-positive factor should use the default")
	}
	if IsOverloaded(a, Workloads{}, 1.5) {
		t.Fatal("empty workloads are never overloaded")
	}
	if IsOverloaded(uuid.New(), workloads, 1.5) {
		t.Fatal("unknown assignee is not overloaded")
	}
}

func TestValidateItemsReportsEachInvalidItem(t *testing.T) {
	ok1, ok2, costed, closed, missing := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	found := []ItemState{
		{ItemID: ok1, Status: enums.InquiryItemStatusPending, InquiryStatus: enums.InquiryStatusSubmitted},
		{ItemID: ok2, Status: enums.InquiryItemStatusAssigned, InquiryStatus: enums.InquiryStatusAssigned},
		{ItemID: costed, Status: enums.InquiryItemStatusCosted, InquiryStatus: enums.InquiryStatusAssigned},
		{ItemID: closed, Status: enums.InquiryItemStatusPending, InquiryStatus: enums.InquiryStatusDraft},
	}

	invalid := ValidateItems([]uuid.UUID{ok1, costed, missing, ok2, closed, ok1}, found)
	if len(invalid) != 4 {
		t.Fatalf("expected 4 invalid items, got %+v", invalid)
	}
	ids := InvalidIDs(invalid)
	want := []uuid.UUID{costed, missing, closed, ok1}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], ids[i])
		}
	}
	if invalid[1].Reason != ReasonNotFound {
		t.Fatalf("unexpected reason %q", invalid[1].Reason)
	}
	if invalid[3].Reason != ReasonDuplicateRequest {
		t.Fatalf("unexpected reason %q", invalid[3].Reason)
	}

	if got := ValidateItems([]uuid.UUID{ok1, ok2}, found); len(got) != 0 {
		t.Fatalf("expected valid batch, got %+v", got)
	}
}

package assignment

import (
	"sort"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// DefaultOverloadFactor flags assignees carrying 50% more than the average.
const DefaultOverloadFactor = 1.5

// Assignee is a user eligible to receive cost-calculation work.
type Assignee struct {
	ID   uuid.UUID      `json:"id"`
	Name string         `json:"name"`
	Role enums.UserRole `json:"role"`
}

// Workload counts an assignee's items: Pending are ASSIGNED and not yet costed,
// Completed are COSTED.
type Workload struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// Workloads is a snapshot keyed by assignee id.
type Workloads map[uuid.UUID]Workload

// Ranked is one entry of a recommendation.
type Ranked struct {
	Assignee
	Workload
	Overloaded bool `json:"overloaded"`
}

// Rank orders assignees by pending count ascending, then name, then id. The
// result is advisory; assignment targets are always chosen by the caller.
func Rank(assignees []Assignee, workloads Workloads) []Ranked {
	out := make([]Ranked, 0, len(assignees))
	for _, a := range assignees {
		out = append(out, Ranked{Assignee: a, Workload: workloads[a.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pending != out[j].Pending {
			return out[i].Pending < out[j].Pending
		}
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// AveragePending is the mean pending count over the snapshot.
func AveragePending(workloads Workloads) float64 {
	if len(workloads) == 0 {
		return 0
	}
	total := 0
	for _, w := range workloads {
		total += w.Pending
	}
	return float64(total) / float64(len(workloads))
}

// IsOverloaded reports whether the assignee's pending count exceeds factor
// times the average. An empty snapshot is never overloaded; a non-positive
// factor falls back to DefaultOverloadFactor.
func IsOverloaded(assigneeID uuid.UUID, workloads Workloads, factor float64) bool {
	if len(workloads) == 0 {
		return false
	}
	if factor <= 0 {
		factor = DefaultOverloadFactor
	}
	w, ok := workloads[assigneeID]
	if !ok {
		return false
	}
	return float64(w.Pending) > factor*AveragePending(workloads)
}

package assignment

import (
	"context"

	"github.com/angelmondragon/quoteflow-backend/internal/repo"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads the live workload snapshot.
type Repository struct {
	repo.Base
}

// NewRepository binds the workload repository to conn.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// ListEligibleAssignees returns active VP and VPP users ordered by name.
func (r *Repository) ListEligibleAssignees(ctx context.Context) ([]Assignee, error) {
	var users []models.User
	err := r.DB(ctx).
		Where("is_active = ? AND role IN ?", true, []enums.UserRole{enums.UserRoleVP, enums.UserRoleVPP}).
		Order("name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]Assignee, 0, len(users))
	for _, u := range users {
		out = append(out, Assignee{ID: u.ID, Name: u.Name, Role: u.Role})
	}
	return out, nil
}

type workloadRow struct {
	AssigneeID uuid.UUID
	Status     enums.InquiryItemStatus
	Total      int
}

// CountWorkloads counts assigned and costed items per assignee. Every id in
// assigneeIDs gets an entry, including those with no items. Items of closed or
// cancelled inquiries are excluded.
func (r *Repository) CountWorkloads(ctx context.Context, assigneeIDs []uuid.UUID) (Workloads, error) {
	out := make(Workloads, len(assigneeIDs))
	for _, id := range assigneeIDs {
		out[id] = Workload{}
	}
	if len(assigneeIDs) == 0 {
		return out, nil
	}

	var rows []workloadRow
	err := r.DB(ctx).
		Table("inquiry_items").
		Select("inquiry_items.assignee_id AS assignee_id, inquiry_items.status AS status, COUNT(*) AS total").
		Joins("JOIN inquiries ON inquiries.id = inquiry_items.inquiry_id").
		Where("inquiry_items.assignee_id IN ?", assigneeIDs).
		Where("inquiries.status NOT IN ?", []enums.InquiryStatus{enums.InquiryStatusClosed, enums.InquiryStatusCancelled}).
		Group("inquiry_items.assignee_id, inquiry_items.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		w := out[row.AssigneeID]
		switch row.Status {
		case enums.InquiryItemStatusAssigned:
			w.Pending += row.Total
		case enums.InquiryItemStatusCosted:
			w.Completed += row.Total
		}
		out[row.AssigneeID] = w
	}
	return out, nil
}

package workflow

import (
	"context"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/repo"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists the workflow aggregates. Every method reads through the
// bound connection, so callers inside a transaction must use WithTx.
type Repository struct {
	repo.Base
}

// NewRepository binds the workflow repository to conn.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// InquiryFilter narrows ListInquiries.
type InquiryFilter struct {
	Status     enums.InquiryStatus
	CustomerID uuid.UUID
	CreatedBy  uuid.UUID
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("inquiry_items.created_at ASC").Order("inquiry_items.id ASC")
}

// CreateInquiry inserts the inquiry together with its items.
func (r *Repository) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	return r.DB(ctx).Create(inquiry).Error
}

// FindInquiry loads the inquiry with its items and their cost calculations.
func (r *Repository) FindInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.DB(ctx).
		Preload("Items", orderedItems).
		Preload("Items.CostCalculation").
		First(&inquiry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// LockInquiry loads the inquiry row for update without associations.
func (r *Repository) LockInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.Locked(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// LockInquiries loads several inquiries for update keyed by id.
func (r *Repository) LockInquiries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Inquiry, error) {
	out := make(map[uuid.UUID]models.Inquiry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Inquiry
	if err := r.Locked(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) UpdateInquiry(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Updates(updates).Error
}

// ListInquiries returns one newest-first page, buffered by one row.
func (r *Repository) ListInquiries(ctx context.Context, filter InquiryFilter, params pagination.Params) ([]models.Inquiry, error) {
	query := r.DB(ctx).Model(&models.Inquiry{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != uuid.Nil {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CreatedBy != uuid.Nil {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	query, err := pagination.Apply(query, "", params)
	if err != nil {
		return nil, err
	}
	var out []models.Inquiry
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LockItems loads the requested items for update with their cost calculations.
// Missing ids are simply absent from the result.
func (r *Repository) LockItems(ctx context.Context, ids []uuid.UUID) ([]models.InquiryItem, error) {
	var out []models.InquiryItem
	if len(ids) == 0 {
		return out, nil
	}
	err := r.Locked(ctx).
		Preload("CostCalculation").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// LockItem loads one item for update.
func (r *Repository) LockItem(ctx context.Context, id uuid.UUID) (*models.InquiryItem, error) {
	var item models.InquiryItem
	if err := r.Locked(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListItems(ctx context.Context, inquiryID uuid.UUID) ([]models.InquiryItem, error) {
	var out []models.InquiryItem
	err := orderedItems(r.DB(ctx).Preload("CostCalculation")).
		Where("inquiry_id = ?", inquiryID).
		Find(&out).Error
	return out, err
}

func (r *Repository) UpdateItems(ctx context.Context, ids []uuid.UUID, updates map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.InquiryItem{}).Where("id IN ?", ids).Updates(updates).Error
}

// PendingItemIDs lists the unassigned items of an inquiry in creation order.
func (r *Repository) PendingItemIDs(ctx context.Context, inquiryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := orderedItems(r.DB(ctx).Model(&models.InquiryItem{})).
		Where("inquiry_id = ? AND status = ?", inquiryID, enums.InquiryItemStatusPending).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) LockCostByItem(ctx context.Context, itemID uuid.UUID) (*models.CostCalculation, error) {
	var calc models.CostCalculation
	if err := r.Locked(ctx).First(&calc, "item_id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &calc, nil
}

func (r *Repository) LockCost(ctx context.Context, id uuid.UUID) (*models.CostCalculation, error) {
	var calc models.CostCalculation
	if err := r.Locked(ctx).First(&calc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &calc, nil
}

func (r *Repository) CreateCost(ctx context.Context, calc *models.CostCalculation) error {
	return r.DB(ctx).Omit("Approvals").Create(calc).Error
}

// SaveCost writes every column of an existing calculation, including false flags.
func (r *Repository) SaveCost(ctx context.Context, calc *models.CostCalculation) error {
	return r.DB(ctx).Omit("Approvals").Save(calc).Error
}

// LockCosts marks the calculations of the given items as referenced by a sent quote.
func (r *Repository) LockCosts(ctx context.Context, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.CostCalculation{}).
		Where("item_id IN ?", itemIDs).
		Update("locked", true).Error
}

func (r *Repository) LockApproval(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	if err := r.Locked(ctx).First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

// LatestApproval returns the most recent approval of a calculation, or
// gorm.ErrRecordNotFound when none was ever requested.
func (r *Repository) LatestApproval(ctx context.Context, costID uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	err := r.DB(ctx).
		Where("cost_calculation_id = ?", costID).
		Order("created_at DESC").
		Order("id DESC").
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

// LatestApprovals maps each calculation id to its most recent approval.
func (r *Repository) LatestApprovals(ctx context.Context, costIDs []uuid.UUID) (map[uuid.UUID]models.Approval, error) {
	out := make(map[uuid.UUID]models.Approval, len(costIDs))
	if len(costIDs) == 0 {
		return out, nil
	}
	var rows []models.Approval
	err := r.DB(ctx).
		Where("cost_calculation_id IN ?", costIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CostCalculationID] = row
	}
	return out, nil
}

func (r *Repository) CreateApproval(ctx context.Context, approval *models.Approval) error {
	return r.DB(ctx).Create(approval).Error
}

func (r *Repository) UpdateApproval(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Approval{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.DB(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *Repository) LockQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.Locked(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

// HasOpenQuote reports whether the inquiry has a DRAFT or SENT quote.
func (r *Repository) HasOpenQuote(ctx context.Context, inquiryID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Quote{}).
		Where("inquiry_id = ? AND status IN ?", inquiryID, []enums.QuoteStatus{enums.QuoteStatusDraft, enums.QuoteStatusSent}).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateQuote(ctx context.Context, quote *models.Quote) error {
	return r.DB(ctx).Create(quote).Error
}

func (r *Repository) UpdateQuote(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Quote{}).Where("id = ?", id).Updates(updates).Error
}

// ListSentQuotesValidBefore returns SENT quotes whose validity ends before cutoff,
// oldest deadline first.
func (r *Repository) ListSentQuotesValidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Quote, error) {
	var out []models.Quote
	query := r.DB(ctx).
		Where("status = ? AND valid_until < ?", enums.QuoteStatusSent, cutoff.UTC()).
		Order("valid_until ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

// ListSentQuotesValidBetween returns SENT quotes whose validity ends in [from, to).
func (r *Repository) ListSentQuotesValidBetween(ctx context.Context, from, to time.Time) ([]models.Quote, error) {
	var out []models.Quote
	err := r.DB(ctx).
		Where("status = ? AND valid_until >= ? AND valid_until < ?", enums.QuoteStatusSent, from.UTC(), to.UTC()).
		Order("valid_until ASC").
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *Repository) FindProductionOrder(ctx context.Context, id uuid.UUID) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) LockProductionOrder(ctx context.Context, id uuid.UUID) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	if err := r.Locked(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindProductionOrderByQuote(ctx context.Context, quoteID uuid.UUID) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	if err := r.DB(ctx).First(&order, "quote_id = ?", quoteID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) CreateProductionOrder(ctx context.Context, order *models.ProductionOrder) error {
	return r.DB(ctx).Create(order).Error
}

func (r *Repository) UpdateProductionOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.ProductionOrder{}).Where("id = ?", id).Updates(updates).Error
}

// FindUser reads a user inside the current transaction.
func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveUserIDs lists active users holding any of roles.
func (r *Repository) ActiveUserIDs(ctx context.Context, roles ...enums.UserRole) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.User{}).
		Where("is_active = ? AND role IN ?", true, roles).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

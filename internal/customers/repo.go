package customers

import (
	"context"

	"github.com/angelmondragon/quoteflow-backend/internal/repo"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, search string, params pagination.Params) ([]models.Customer, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository binds the customers repository to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(conn)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Base.WithTx(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repositoryImpl) List(ctx context.Context, search string, params pagination.Params) ([]models.Customer, error) {
	query := r.DB(ctx).Model(&models.Customer{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}
	query, err := pagination.Apply(query, "", params)
	if err != nil {
		return nil, err
	}
	var out []models.Customer
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

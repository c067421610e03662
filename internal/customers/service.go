package customers

import (
	"context"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
)

const customerNameConstraint = "ux_customers_name"

// CreateInput is the data needed to register a customer.
type CreateInput struct {
	Name  string
	Email *string
	Phone *string
}

// ListParams filters the customer listing.
type ListParams struct {
	Search string
	Limit  int
	Cursor string
}

// Service manages the customer directory.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Customer, error)
	List(ctx context.Context, params ListParams, actor permissions.Actor) (*pagination.Page[models.Customer], error)
}

type service struct {
	repo   Repository
	policy *permissions.Policy
}

// NewService wires the customer service.
func NewService(repo Repository, policy *permissions.Policy) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customers repository required")
	}
	if policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "permission policy required")
	}
	return &service{repo: repo, policy: policy}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Customer, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceCustomer, permissions.ActionCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	customer := &models.Customer{Name: name, Email: input.Email, Phone: input.Phone}
	if err := s.repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolationOf(err, customerNameConstraint, "customers.name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "customer name already exists").
				WithDetails(map[string]any{"field": "name", "value": name})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*models.Customer, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceCustomer, permissions.ActionRead); err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("customer", id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, params ListParams, actor permissions.Actor) (*pagination.Page[models.Customer], error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceCustomer, permissions.ActionRead); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, strings.ToLower(strings.TrimSpace(params.Search)), pagination.Params{Limit: params.Limit, Cursor: params.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	page := pagination.Build(rows, params.Limit, func(c models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

package automation

import (
	"context"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	entityRule             = "automation_rule"
	ruleSequenceConstraint = "ux_automation_rules_sequence"
)

// RuleInput is the writable part of a rule.
type RuleInput struct {
	Name        string
	Description *string
	Trigger     enums.AutomationTrigger
	Conditions  []Condition
	Actions     []Action
	Priority    int
	IsActive    *bool
}

// ListRulesParams filters and pages rule listings.
type ListRulesParams struct {
	Trigger enums.AutomationTrigger
	Active  *bool
	Limit   int
	Cursor  string
}

// ListLogsParams filters and pages log listings.
type ListLogsParams struct {
	RuleID   *uuid.UUID
	EntityID *uuid.UUID
	Trigger  enums.AutomationTrigger
	Limit    int
	Cursor   string
}

// Service manages automation rules and exposes their logs.
type Service interface {
	CreateRule(ctx context.Context, input RuleInput, actor permissions.Actor) (*Rule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, input RuleInput, actor permissions.Actor) (*Rule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor permissions.Actor) (*Rule, error)
	DeleteRule(ctx context.Context, id uuid.UUID, actor permissions.Actor) error
	GetRule(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*Rule, error)
	ListRules(ctx context.Context, params ListRulesParams, actor permissions.Actor) (*pagination.Page[Rule], error)
	ListLogs(ctx context.Context, params ListLogsParams, actor permissions.Actor) (*pagination.Page[models.AutomationLog], error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditSink interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  auditSink
	policy *permissions.Policy
}

// NewService wires the rule management service.
func NewService(repo Repository, tx txRunner, sink auditSink, policy *permissions.Policy) (Service, error) {
	switch {
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "automation repository required")
	case tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case sink == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit sink required")
	case policy == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "permission policy required")
	}
	return &service{repo: repo, tx: tx, audit: sink, policy: policy}, nil
}

func (s *service) CreateRule(ctx context.Context, input RuleInput, actor permissions.Actor) (*Rule, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionCreate); err != nil {
		return nil, err
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "rules need a creating user")
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := Validate(input.Name, input.Trigger, input.Conditions, input.Actions); err != nil {
		return nil, err
	}
	conditions, actions, err := encodeDefinition(input.Conditions, input.Actions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode rule")
	}
	active := input.IsActive == nil || *input.IsActive

	var created *models.AutomationRule
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		seq, err := repo.NextSequence(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate rule sequence")
		}
		row := &models.AutomationRule{
			Name:        input.Name,
			Description: input.Description,
			Trigger:     input.Trigger,
			Conditions:  conditions,
			Actions:     actions,
			Priority:    input.Priority,
			IsActive:    true,
			CreatedBy:   actor.UserID,
			Sequence:    seq,
		}
		if err := repo.CreateRule(ctx, row); err != nil {
			if db.IsUniqueViolationOf(err, ruleSequenceConstraint, "automation_rules.sequence") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "rule sequence taken, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule")
		}
		// is_active has a column default, so an inactive rule is written in two steps.
		if !active {
			if err := repo.UpdateRule(ctx, row.ID, map[string]any{"is_active": false}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate rule")
			}
			row.IsActive = false
		}
		if err := s.record(ctx, tx, actor, "automation_rule.created", row.ID, nil, row); err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decoded(*created)
}

func (s *service) UpdateRule(ctx context.Context, id uuid.UUID, input RuleInput, actor permissions.Actor) (*Rule, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := Validate(input.Name, input.Trigger, input.Conditions, input.Actions); err != nil {
		return nil, err
	}
	conditions, actions, err := encodeDefinition(input.Conditions, input.Actions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode rule")
	}

	var updated *models.AutomationRule
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockRule(ctx, id)
		if err != nil {
			return loadRuleErr(err, id)
		}
		before := *current
		updates := map[string]any{
			"name":         input.Name,
			"description":  input.Description,
			"trigger_type": input.Trigger,
			"conditions":   conditions,
			"actions":      actions,
			"priority":     input.Priority,
		}
		current.Name = input.Name
		current.Description = input.Description
		current.Trigger = input.Trigger
		current.Conditions = conditions
		current.Actions = actions
		current.Priority = input.Priority
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
			current.IsActive = *input.IsActive
		}
		if err := repo.UpdateRule(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule")
		}
		if err := s.record(ctx, tx, actor, "automation_rule.updated", id, before, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decoded(*updated)
}

// SetActive toggles a rule. Activation re-validates the stored definition
// against the current trigger schema.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool, actor permissions.Actor) (*Rule, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	var out *models.AutomationRule
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockRule(ctx, id)
		if err != nil {
			return loadRuleErr(err, id)
		}
		if active {
			rule, err := RuleFromModel(*current)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored rule is unreadable")
			}
			if err := Validate(rule.Name, rule.Trigger, rule.Conditions, rule.Actions); err != nil {
				return err
			}
		}
		if current.IsActive == active {
			out = current
			return nil
		}
		if err := repo.UpdateRule(ctx, id, map[string]any{"is_active": active}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule")
		}
		if err := s.record(ctx, tx, actor, "automation_rule.activation_changed", id,
			map[string]any{"isActive": current.IsActive}, map[string]any{"isActive": active}); err != nil {
			return err
		}
		current.IsActive = active
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decoded(*out)
}

func (s *service) DeleteRule(ctx context.Context, id uuid.UUID, actor permissions.Actor) error {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionDelete); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockRule(ctx, id)
		if err != nil {
			return loadRuleErr(err, id)
		}
		if _, err := repo.DeleteRule(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete rule")
		}
		return s.record(ctx, tx, actor, "automation_rule.deleted", id, current, nil)
	})
}

func (s *service) GetRule(ctx context.Context, id uuid.UUID, actor permissions.Actor) (*Rule, error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionRead); err != nil {
		return nil, err
	}
	row, err := s.repo.FindRule(ctx, id)
	if err != nil {
		return nil, loadRuleErr(err, id)
	}
	return decoded(*row)
}

func (s *service) ListRules(ctx context.Context, params ListRulesParams, actor permissions.Actor) (*pagination.Page[Rule], error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationRule, permissions.ActionRead); err != nil {
		return nil, err
	}
	if params.Trigger != "" && !params.Trigger.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown trigger "+string(params.Trigger))
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListRules(ctx, RuleFilter{Trigger: params.Trigger, Active: params.Active}, pagination.Params{Limit: params.Limit, Cursor: params.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	page := pagination.Build(rows, params.Limit, func(r models.AutomationRule) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Page[Rule]{Items: make([]Rule, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		rule, err := RuleFromModel(row)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode rule")
		}
		out.Items = append(out.Items, rule)
	}
	return &out, nil
}

func (s *service) ListLogs(ctx context.Context, params ListLogsParams, actor permissions.Actor) (*pagination.Page[models.AutomationLog], error) {
	if err := s.policy.Authorize(actor.Role, permissions.ResourceAutomationLog, permissions.ActionRead); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListLogs(ctx, LogFilter{RuleID: params.RuleID, EntityID: params.EntityID, Trigger: params.Trigger},
		pagination.Params{Limit: params.Limit, Cursor: params.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list automation logs")
	}
	page := pagination.Build(rows, params.Limit, func(l models.AutomationLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.FiredAt, ID: l.ID}
	})
	return &page, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, actor permissions.Actor, action string, id uuid.UUID, old, updated any) error {
	return s.audit.Record(ctx, tx, audit.Entry{
		Action:   action,
		Entity:   entityRule,
		EntityID: id,
		ActorID:  actor.UserID,
		Old:      old,
		New:      updated,
	})
}

func decoded(row models.AutomationRule) (*Rule, error) {
	rule, err := RuleFromModel(row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode rule")
	}
	return &rule, nil
}

func loadRuleErr(err error, id uuid.UUID) error {
	if db.IsNotFound(err) {
		return pkgerrors.NotFound(entityRule, id.String())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rule")
}

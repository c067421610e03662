package automation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/metrics"
	"github.com/google/uuid"
)

// DefaultMaxDepth bounds how often one (trigger, entity) pair may dispatch
// within a single pass.
const DefaultMaxDepth = 3

// Params wires an Engine.
type Params struct {
	Repo     Repository
	Workflow Workflow
	Notifier Notifier
	Users    Users
	Logger   *logger.Logger
	Metrics  *metrics.WorkflowMetrics
	MaxDepth int
}

// Engine evaluates stored rules against committed workflow events.
type Engine struct {
	repo     Repository
	workflow Workflow
	notifier Notifier
	users    Users
	logg     *logger.Logger
	metrics  *metrics.WorkflowMetrics
	maxDepth int
}

// NewEngine validates p and builds an Engine.
func NewEngine(p Params) (*Engine, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "automation repository required")
	case p.Workflow == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "workflow engine required")
	case p.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case p.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	depth := p.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Engine{
		repo:     p.Repo,
		workflow: p.Workflow,
		notifier: p.Notifier,
		users:    p.Users,
		logg:     p.Logger,
		metrics:  p.Metrics,
		maxDepth: depth,
	}, nil
}

// Dispatch runs the active rules of event.Trigger. It never fails the caller:
// rule failures land in the automation log.
func (e *Engine) Dispatch(ctx context.Context, event workflow.Event) {
	ctx, p := passFrom(ctx)
	key := passKey{trigger: event.Trigger, entity: event.EntityID}
	ctx = e.logg.WithFields(ctx, map[string]any{
		"trigger":     string(event.Trigger),
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID.String(),
	})

	admit, count := p.enter(key, e.maxDepth)
	switch admit {
	case suppressed:
		return
	case haltNow:
		e.halt(ctx, event, count)
		return
	}

	rules, err := e.repo.ActiveRules(ctx, event.Trigger)
	if err != nil {
		e.logg.Error(ctx, "load automation rules", err)
		return
	}
	if len(rules) == 0 {
		return
	}
	schema, _ := SchemaFor(event.Trigger)
	doc, err := NewDocument(event)
	if err != nil {
		e.logg.Error(ctx, "build automation document", err)
		return
	}

	for _, stored := range rules {
		rule, err := RuleFromModel(stored)
		if err != nil {
			e.writeLog(ctx, &stored.ID, event, enums.AutomationOutcomeFailure, enums.AutomationSeverityInfo, err.Error())
			continue
		}
		if !Matches(schema, rule.Conditions, doc) {
			continue
		}
		e.fire(ctx, rule, event, doc)
	}
}

// fire runs the actions of a matching rule in order and writes its log entry.
// The first failing action stops the rule.
func (e *Engine) fire(ctx context.Context, rule Rule, event workflow.Event, doc Document) {
	ctx = e.logg.WithRuleID(ctx, rule.ID.String())
	actor, err := e.creator(ctx, rule)
	if err != nil {
		e.finish(ctx, rule, event, err, 0)
		return
	}
	for i, action := range rule.Actions {
		if err := e.execute(ctx, rule, i, action, doc, actor); err != nil {
			e.finish(ctx, rule, event, fmt.Errorf("action %d (%s): %w", i, action.Type, err), i)
			return
		}
	}
	e.finish(ctx, rule, event, nil, len(rule.Actions))
}

func (e *Engine) finish(ctx context.Context, rule Rule, event workflow.Event, err error, executed int) {
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "automation rule failed")
		e.metrics.IncAutomationOutcome(string(event.Trigger), string(enums.AutomationOutcomeFailure))
		e.writeLog(ctx, &rule.ID, event, enums.AutomationOutcomeFailure, enums.AutomationSeverityInfo,
			fmt.Sprintf("rule %q failed after %d action(s): %v", rule.Name, executed, err))
		return
	}
	e.metrics.IncAutomationOutcome(string(event.Trigger), string(enums.AutomationOutcomeSuccess))
	e.writeLog(ctx, &rule.ID, event, enums.AutomationOutcomeSuccess, enums.AutomationSeverityInfo,
		fmt.Sprintf("rule %q executed %d action(s)", rule.Name, executed))
}

// creator resolves the identity rule actions run as.
func (e *Engine) creator(ctx context.Context, rule Rule) (permissions.Actor, error) {
	user, err := e.users.FindByID(ctx, rule.CreatedBy)
	if err != nil {
		if db.IsNotFound(err) {
			return permissions.Actor{}, pkgerrors.NotFound("user", rule.CreatedBy.String())
		}
		return permissions.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rule creator")
	}
	if !user.IsActive {
		return permissions.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "rule creator is inactive")
	}
	return permissions.Actor{UserID: user.ID, Role: user.Role}, nil
}

func (e *Engine) halt(ctx context.Context, event workflow.Event, count int) {
	msg := fmt.Sprintf("automation halted: %s for %s %s dispatched %d times in one pass (limit %d)",
		event.Trigger, event.EntityType, event.EntityID, count, e.maxDepth)
	e.logg.Critical(ctx, msg, nil)
	e.metrics.IncRecursionHalt()
	e.writeLog(ctx, nil, event, enums.AutomationOutcomeFailure, enums.AutomationSeverityCritical, msg)
}

func (e *Engine) writeLog(ctx context.Context, ruleID *uuid.UUID, event workflow.Event, outcome enums.AutomationOutcome, severity enums.AutomationSeverity, message string) {
	entry := &models.AutomationLog{
		RuleID:     ruleID,
		Trigger:    event.Trigger,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Outcome:    outcome,
		Severity:   severity,
		Message:    message,
	}
	if err := e.repo.CreateLog(ctx, entry); err != nil {
		e.logg.Error(ctx, "write automation log", err)
	}
}

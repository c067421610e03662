// Package bootstrap wires the workflow core shared by the api and the cron
// worker.
package bootstrap

import (
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/internal/assignment"
	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/automation"
	"github.com/angelmondragon/quoteflow-backend/internal/customers"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/users"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/config"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/metrics"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/idempotency"
	"github.com/prometheus/client_golang/prometheus"
)

// Sequencer hands out yearly document numbers. *redis.Client satisfies it.
type Sequencer = workflow.Sequencer

// Params are the infrastructure handles the stack is built from.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Sequencer  Sequencer
	Signals    *idempotency.Manager
	Registerer prometheus.Registerer
}

// Stack exposes the wired services.
type Stack struct {
	Workflow      *workflow.Engine
	Automation    *automation.Engine
	Rules         automation.Service
	Balancer      *assignment.Balancer
	Notifier      *notifications.Notifier
	Notifications notifications.Service
	Customers     customers.Service
	Users         *users.Repository
	Outbox        *outbox.Service
	Policy        *permissions.Policy
	Metrics       *metrics.WorkflowMetrics
	Signals       *idempotency.Manager
}

// NewStack builds the workflow engine, attaches the automation engine as its
// dispatcher and assembles the read-side services around them.
func NewStack(p Params) (*Stack, error) {
	switch {
	case p.Config == nil:
		return nil, fmt.Errorf("config required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.DB == nil:
		return nil, fmt.Errorf("db client required")
	case p.Sequencer == nil:
		return nil, fmt.Errorf("sequencer required")
	}

	conn := p.DB.DB()
	policy := permissions.MustDefault()
	wfMetrics := metrics.NewWorkflowMetrics(p.Registerer)
	emitter := outbox.NewService(outbox.NewRepository(conn), p.Logger)
	recorder := audit.NewRecorder()
	userRepo := users.NewRepository(conn)

	notifier, err := notifications.NewNotifier(notifications.NewRepository(conn), emitter, p.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}

	engine, err := workflow.NewEngine(workflow.Params{
		Repo:      workflow.NewRepository(conn),
		Tx:        p.DB,
		Outbox:    emitter,
		Audit:     recorder,
		Notifier:  notifier,
		Sequencer: p.Sequencer,
		Policy:    policy,
		Config: workflow.Config{
			ApprovalThreshold: p.Config.Workflow.Threshold(),
			QuoteValidityDays: p.Config.Workflow.QuoteValidityDays,
		},
		Metrics: wfMetrics,
		Logger:  p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("workflow engine: %w", err)
	}

	ruleRepo := automation.NewRepository(conn)
	rules, err := automation.NewService(ruleRepo, p.DB, recorder, policy)
	if err != nil {
		return nil, fmt.Errorf("automation service: %w", err)
	}
	automationEngine, err := automation.NewEngine(automation.Params{
		Repo:     ruleRepo,
		Workflow: engine,
		Notifier: notifier,
		Users:    userRepo,
		Logger:   p.Logger,
		Metrics:  wfMetrics,
		MaxDepth: p.Config.Workflow.AutomationMaxDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("automation engine: %w", err)
	}
	engine.UseDispatcher(automationEngine)

	balancer, err := assignment.NewBalancer(assignment.NewRepository(conn), p.Config.Workflow.OverloadFactor)
	if err != nil {
		return nil, fmt.Errorf("assignment balancer: %w", err)
	}
	customerService, err := customers.NewService(customers.NewRepository(conn), policy)
	if err != nil {
		return nil, fmt.Errorf("customer service: %w", err)
	}

	return &Stack{
		Workflow:      engine,
		Automation:    automationEngine,
		Rules:         rules,
		Balancer:      balancer,
		Notifier:      notifier,
		Notifications: notificationService,
		Customers:     customerService,
		Users:         userRepo,
		Outbox:        emitter,
		Policy:        policy,
		Metrics:       wfMetrics,
		Signals:       p.Signals,
	}, nil
}

package automation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/repo/repotest"
	"github.com/angelmondragon/quoteflow-backend/internal/users"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/metrics"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubWorkflow struct {
	submitErr error
	submitted []uuid.UUID
	assigned  [][]uuid.UUID
	onAssign  func(ctx context.Context, itemIDs []uuid.UUID)
	approvals []uuid.UUID
	actors    []permissions.Actor
}

func (s *stubWorkflow) SubmitInquiry(_ context.Context, id uuid.UUID, actor permissions.Actor) (*models.Inquiry, error) {
	s.actors = append(s.actors, actor)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = append(s.submitted, id)
	return &models.Inquiry{ID: id}, nil
}

func (s *stubWorkflow) CancelInquiry(_ context.Context, id uuid.UUID, _ string, _ permissions.Actor) (*models.Inquiry, error) {
	return &models.Inquiry{ID: id}, nil
}

func (s *stubWorkflow) GetInquiry(_ context.Context, id uuid.UUID, _ permissions.Actor) (*models.Inquiry, error) {
	return &models.Inquiry{ID: id}, nil
}

func (s *stubWorkflow) PendingItemIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return []uuid.UUID{uuid.New()}, nil
}

func (s *stubWorkflow) AssignItems(ctx context.Context, itemIDs []uuid.UUID, _ uuid.UUID, actor permissions.Actor) (*workflow.AssignmentResult, error) {
	s.actors = append(s.actors, actor)
	s.assigned = append(s.assigned, itemIDs)
	if s.onAssign != nil {
		s.onAssign(ctx, itemIDs)
	}
	return &workflow.AssignmentResult{ItemIDs: itemIDs}, nil
}

func (s *stubWorkflow) RequestCostApproval(_ context.Context, id uuid.UUID, _ string, _ permissions.Actor) (*models.Approval, error) {
	s.approvals = append(s.approvals, id)
	return &models.Approval{CostCalculationID: id}, nil
}

func (s *stubWorkflow) SendQuote(_ context.Context, id uuid.UUID, _ permissions.Actor) (*models.Quote, error) {
	return &models.Quote{ID: id}, nil
}

func (s *stubWorkflow) RecordQuoteOutcome(_ context.Context, id uuid.UUID, _ enums.QuoteStatus, _ permissions.Actor) (*workflow.QuoteOutcomeResult, error) {
	return &workflow.QuoteOutcomeResult{Quote: &models.Quote{ID: id}}, nil
}

func (s *stubWorkflow) AdvanceProductionOrder(_ context.Context, id uuid.UUID, _ enums.ProductionOrderStatus, _ permissions.Actor) (*models.ProductionOrder, error) {
	return &models.ProductionOrder{ID: id}, nil
}

type stubNotifier struct {
	sent []notifications.Message
}

func (s *stubNotifier) Notify(_ context.Context, msgs ...notifications.Message) error {
	s.sent = append(s.sent, msgs...)
	return nil
}

type engineFixture struct {
	conn     *gorm.DB
	repo     Repository
	workflow *stubWorkflow
	notifier *stubNotifier
	registry *prometheus.Registry
	metrics  *metrics.WorkflowMetrics
	engine   *Engine
	manager  models.User
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	conn := repotest.Open(t)
	f := &engineFixture{
		conn:     conn,
		repo:     NewRepository(conn),
		workflow: &stubWorkflow{},
		notifier: &stubNotifier{},
		registry: prometheus.NewRegistry(),
	}
	f.metrics = metrics.NewWorkflowMetrics(f.registry)
	f.manager = models.User{Email: "mia@quoteflow.test", Name: "Mia Manager", Role: enums.UserRoleManager, IsActive: true}
	require.NoError(t, conn.Create(&f.manager).Error)

	var err error
	f.engine, err = NewEngine(Params{
		Repo:     f.repo,
		Workflow: f.workflow,
		Notifier: f.notifier,
		Users:    users.NewRepository(conn),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	return f
}

func (f *engineFixture) rule(t *testing.T, name string, trigger enums.AutomationTrigger, priority int, conditions []Condition, actions ...Action) models.AutomationRule {
	t.Helper()
	c, a, err := encodeDefinition(conditions, actions)
	require.NoError(t, err)
	seq, err := f.repo.NextSequence(context.Background())
	require.NoError(t, err)
	row := models.AutomationRule{
		Name:       name,
		Trigger:    trigger,
		Conditions: c,
		Actions:    a,
		Priority:   priority,
		IsActive:   true,
		CreatedBy:  f.manager.ID,
		Sequence:   seq,
	}
	require.NoError(t, f.repo.CreateRule(context.Background(), &row))
	return row
}

func (f *engineFixture) logs(t *testing.T) []models.AutomationLog {
	t.Helper()
	var out []models.AutomationLog
	require.NoError(t, f.conn.Order("fired_at ASC").Find(&out).Error)
	return out
}

// counter sums the samples of a counter family, optionally keeping only
// series carrying label value.
func (f *engineFixture) counter(t *testing.T, name, value string) float64 {
	t.Helper()
	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			keep := value == ""
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == value {
					keep = true
				}
			}
			if keep {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func notifyManagers(t *testing.T, title string) Action {
	return action(t, enums.ActionSendNotification, SendNotificationParams{Recipient: enums.RecipientManagers, Title: title, Message: "inquiry {{title}}"})
}

func inquiryCreated() workflow.Event {
	id := uuid.New()
	return workflow.Event{
		Trigger:    enums.TriggerInquiryCreated,
		EntityType: workflow.EntityInquiry,
		EntityID:   id,
		Payload:    payloads.InquiryCreatedEvent{InquiryID: id, Title: "Brackets", Priority: "HIGH", Status: "DRAFT", ItemCount: 2},
	}
}

func TestDispatchFiresByPriorityThenSequence(t *testing.T) {
	f := newEngineFixture(t)
	f.rule(t, "low", enums.TriggerInquiryCreated, 5, nil, notifyManagers(t, "low"))
	f.rule(t, "high", enums.TriggerInquiryCreated, 10, nil, notifyManagers(t, "high"))
	f.rule(t, "high later", enums.TriggerInquiryCreated, 10, nil, notifyManagers(t, "high later"))
	f.rule(t, "other trigger", enums.TriggerQuoteCreated, 100, nil, notifyManagers(t, "quote"))

	f.engine.Dispatch(context.Background(), inquiryCreated())

	titles := make([]string, 0, len(f.notifier.sent))
	for _, msg := range f.notifier.sent {
		titles = append(titles, msg.Title)
		require.Equal(t, f.manager.ID, msg.UserID)
		require.Equal(t, "inquiry Brackets", msg.Message)
		require.Equal(t, enums.NotificationTypeAutomation, msg.Type)
	}
	require.Equal(t, []string{"high", "high later", "low"}, titles)
	require.Len(t, f.logs(t), 3)
	require.Equal(t, float64(3), f.counter(t, "quoteflow_automation_rule_outcomes_total", string(enums.AutomationOutcomeSuccess)))
}

func TestDispatchSkipsRulesWhoseConditionsFail(t *testing.T) {
	f := newEngineFixture(t)
	f.rule(t, "urgent only", enums.TriggerInquiryCreated, 0,
		[]Condition{{Field: "priority", Operator: enums.OperatorEquals, Value: "URGENT"}},
		notifyManagers(t, "urgent"))
	f.rule(t, "big inquiries", enums.TriggerInquiryCreated, 0,
		[]Condition{{Field: "itemCount", Operator: enums.OperatorGreaterThan, Value: float64(1)}},
		notifyManagers(t, "big"))

	f.engine.Dispatch(context.Background(), inquiryCreated())

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, "big", f.notifier.sent[0].Title)
	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.Equal(t, enums.AutomationOutcomeSuccess, logs[0].Outcome)
}

func TestDispatchIsolatesFailingRules(t *testing.T) {
	f := newEngineFixture(t)
	f.workflow.submitErr = errors.New("inquiry is not a draft")
	failing := f.rule(t, "auto submit", enums.TriggerInquiryCreated, 10, nil,
		action(t, enums.ActionChangeStatus, ChangeStatusParams{Target: TargetInquiry, Status: "SUBMITTED"}),
		notifyManagers(t, "never sent"))
	passing := f.rule(t, "notify", enums.TriggerInquiryCreated, 1, nil, notifyManagers(t, "sent"))

	f.engine.Dispatch(context.Background(), inquiryCreated())

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, "sent", f.notifier.sent[0].Title)
	require.Equal(t, []permissions.Actor{{UserID: f.manager.ID, Role: enums.UserRoleManager}}, f.workflow.actors)

	byRule := map[uuid.UUID]models.AutomationLog{}
	for _, l := range f.logs(t) {
		require.NotNil(t, l.RuleID)
		byRule[*l.RuleID] = l
	}
	require.Len(t, byRule, 2)
	require.Equal(t, enums.AutomationOutcomeFailure, byRule[failing.ID].Outcome)
	require.Contains(t, byRule[failing.ID].Message, "inquiry is not a draft")
	require.Equal(t, enums.AutomationOutcomeSuccess, byRule[passing.ID].Outcome)
}

func TestDispatchFailsRuleOfInactiveCreator(t *testing.T) {
	f := newEngineFixture(t)
	f.rule(t, "notify", enums.TriggerInquiryCreated, 1, nil, notifyManagers(t, "x"))
	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", f.manager.ID).Update("is_active", false).Error)

	f.engine.Dispatch(context.Background(), inquiryCreated())

	require.Empty(t, f.notifier.sent)
	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.Equal(t, enums.AutomationOutcomeFailure, logs[0].Outcome)
}

func TestDispatchRunsCostActions(t *testing.T) {
	f := newEngineFixture(t)
	assignee := uuid.New()
	f.rule(t, "escalate", enums.TriggerCostCalculated, 0,
		[]Condition{{Field: "total", Operator: enums.OperatorGreaterThan, Value: float64(1000)}},
		action(t, enums.ActionCreateApproval, CreateApprovalParams{Reason: "large"}),
		action(t, enums.ActionSendNotification, SendNotificationParams{Recipient: enums.RecipientAssignee, Title: "Escalated", Message: "total {{total}}"}),
	)
	event, _ := costEvent(t)
	payload := event.Payload.(payloads.CostCalculatedEvent)
	payload.AssigneeID = assignee
	event.Payload = payload

	f.engine.Dispatch(context.Background(), event)

	require.Equal(t, []uuid.UUID{payload.CostCalculationID}, f.workflow.approvals)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, assignee, f.notifier.sent[0].UserID)
	require.Equal(t, "total 12500.5", f.notifier.sent[0].Message)
}

func TestDispatchHaltsRecursiveCascade(t *testing.T) {
	f := newEngineFixture(t)
	inquiryID := uuid.New()
	itemID := uuid.New()
	assignedEvent := workflow.Event{
		Trigger:    enums.TriggerItemAssigned,
		EntityType: workflow.EntityInquiry,
		EntityID:   inquiryID,
		Payload:    payloads.ItemsAssignedEvent{InquiryID: inquiryID, ItemIDs: []uuid.UUID{itemID}, ItemCount: 1},
	}
	// Every assignment re-emits ITEM_ASSIGNED for the same inquiry.
	f.workflow.onAssign = func(ctx context.Context, _ []uuid.UUID) {
		f.engine.Dispatch(ctx, assignedEvent)
	}
	f.rule(t, "ping-pong", enums.TriggerItemAssigned, 0, nil,
		action(t, enums.ActionAssignUser, AssignUserParams{UserID: uuid.New()}))

	f.engine.Dispatch(context.Background(), assignedEvent)

	require.Len(t, f.workflow.assigned, DefaultMaxDepth)
	for _, ids := range f.workflow.assigned {
		require.Equal(t, []uuid.UUID{itemID}, ids)
	}

	var critical, success int
	for _, l := range f.logs(t) {
		switch {
		case l.Severity == enums.AutomationSeverityCritical:
			critical++
			require.Nil(t, l.RuleID)
			require.Equal(t, enums.AutomationOutcomeFailure, l.Outcome)
			require.Equal(t, inquiryID, l.EntityID)
		case l.Outcome == enums.AutomationOutcomeSuccess:
			success++
		}
	}
	require.Equal(t, 1, critical)
	require.Equal(t, DefaultMaxDepth, success)
	require.Equal(t, float64(1), f.counter(t, "quoteflow_automation_recursion_halts_total", ""))

	// A fresh pass starts counting again.
	f.workflow.onAssign = nil
	f.engine.Dispatch(context.Background(), assignedEvent)
	require.Len(t, f.workflow.assigned, DefaultMaxDepth+1)
}

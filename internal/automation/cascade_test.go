package automation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/internal/permissions"
	"github.com/angelmondragon/quoteflow-backend/internal/repo/repotest"
	"github.com/angelmondragon/quoteflow-backend/internal/users"
	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type yearSequencer struct {
	mu   sync.Mutex
	next map[string]int64
}

func (s *yearSequencer) NextSequence(_ context.Context, name string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = map[string]int64{}
	}
	key := fmt.Sprintf("%s:%d", name, year)
	s.next[key]++
	return s.next[key], nil
}

func TestRulesCascadeThroughWorkflowUntilHalted(t *testing.T) {
	ctx := context.Background()
	conn := repotest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client := db.FromConn(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	notifier, err := notifications.NewNotifier(notifications.NewRepository(conn), emitter, client, logg)
	require.NoError(t, err)
	policy := permissions.MustDefault()

	wf, err := workflow.NewEngine(workflow.Params{
		Repo:      workflow.NewRepository(conn),
		Tx:        client,
		Outbox:    emitter,
		Audit:     audit.NewRecorder(),
		Notifier:  notifier,
		Sequencer: &yearSequencer{},
		Policy:    policy,
		Config: workflow.Config{
			ApprovalThreshold: decimal.NewFromInt(10000),
			QuoteValidityDays: 30,
		},
		Logger: logg,
		Clock:  func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	repo := NewRepository(conn)
	rules, err := NewService(repo, client, audit.NewRecorder(), policy)
	require.NoError(t, err)
	engine, err := NewEngine(Params{
		Repo:     repo,
		Workflow: wf,
		Notifier: notifier,
		Users:    users.NewRepository(conn),
		Logger:   logg,
	})
	require.NoError(t, err)
	wf.UseDispatcher(engine)

	newUser := func(name string, role enums.UserRole) permissions.Actor {
		u := models.User{Email: uuid.NewString() + "@quoteflow.test", Name: name, Role: role, IsActive: true}
		require.NoError(t, conn.Create(&u).Error)
		return permissions.Actor{UserID: u.ID, Role: role}
	}
	manager := newUser("Mia Manager", enums.UserRoleManager)
	sales := newUser("Sam Sales", enums.UserRoleSales)
	vp := newUser("Val Pricing", enums.UserRoleVP)
	vpp := newUser("Vic Pricing", enums.UserRoleVPP)

	autoAssign, err := rules.CreateRule(ctx, RuleInput{
		Name:       "Auto-assign submitted inquiries",
		Trigger:    enums.TriggerInquiryStatusChanged,
		Conditions: []Condition{{Field: "status", Operator: enums.OperatorEquals, Value: "SUBMITTED"}},
		Actions:    []Action{action(t, enums.ActionAssignUser, AssignUserParams{UserID: vp.UserID})},
	}, manager)
	require.NoError(t, err)
	handOff, err := rules.CreateRule(ctx, RuleInput{
		Name:    "Hand assigned items to pricing",
		Trigger: enums.TriggerItemAssigned,
		Actions: []Action{action(t, enums.ActionAssignUser, AssignUserParams{UserID: vpp.UserID})},
	}, manager)
	require.NoError(t, err)

	customer := models.Customer{Name: "Acme Tooling"}
	require.NoError(t, conn.Create(&customer).Error)
	inquiry, err := wf.CreateInquiry(ctx, workflow.CreateInquiryInput{
		CustomerID: customer.ID,
		Title:      "Bracket order",
		Priority:   enums.InquiryPriorityNormal,
		Items:      []workflow.ItemInput{{Name: "Bracket", Quantity: 4, Unit: "pcs"}},
	}, sales)
	require.NoError(t, err)

	_, err = wf.SubmitInquiry(ctx, inquiry.ID, sales)
	require.NoError(t, err)

	var items []models.InquiryItem
	require.NoError(t, conn.Where("inquiry_id = ?", inquiry.ID).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, enums.InquiryItemStatusAssigned, items[0].Status)
	require.NotNil(t, items[0].AssigneeID)
	require.Equal(t, vpp.UserID, *items[0].AssigneeID)

	var stored models.Inquiry
	require.NoError(t, conn.First(&stored, "id = ?", inquiry.ID).Error)
	require.Equal(t, enums.InquiryStatusAssigned, stored.Status)

	var logs []models.AutomationLog
	require.NoError(t, conn.Find(&logs).Error)
	outcomes := map[string]int{}
	for _, l := range logs {
		key := "halt"
		switch {
		case l.RuleID != nil && *l.RuleID == autoAssign.ID:
			key = "autoAssign"
		case l.RuleID != nil && *l.RuleID == handOff.ID:
			key = "handOff"
		}
		outcomes[key+":"+string(l.Outcome)]++
	}
	require.Equal(t, map[string]int{
		"autoAssign:SUCCESS": 1,
		"handOff:SUCCESS":    DefaultMaxDepth,
		"halt:FAILURE":       1,
	}, outcomes)

	page, err := rules.ListLogs(ctx, ListLogsParams{EntityID: &inquiry.ID, Trigger: enums.TriggerItemAssigned}, manager)
	require.NoError(t, err)
	require.Len(t, page.Items, DefaultMaxDepth+1)
}

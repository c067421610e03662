package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/quoteflow-backend/internal/audit"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errSinkDown = errors.New("sink down")

type failingAudit struct{}

func (failingAudit) Record(context.Context, *gorm.DB, audit.Entry) error { return errSinkDown }

type failingNotifier struct{ calls int }

func (n *failingNotifier) Notify(context.Context, ...notifications.Message) error {
	n.calls++
	return errSinkDown
}

func (n *failingNotifier) SendEmail(context.Context, notifications.Email) error {
	n.calls++
	return errSinkDown
}

func TestAuditFailureRollsBackTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inquiry, items := f.submittedInquiry(t, 2)
	outboxBefore := f.count(t, &models.OutboxEvent{}, "")
	eventsBefore := len(f.dispatcher.events)

	f.engine.audit = failingAudit{}
	_, err := f.engine.AssignItems(ctx, items, f.vp.UserID, f.manager)
	require.ErrorIs(t, err, errSinkDown)

	for _, id := range items {
		item := f.item(t, id)
		require.Equal(t, enums.InquiryItemStatusPending, item.Status)
		require.Nil(t, item.AssigneeID)
	}
	require.Equal(t, enums.InquiryStatusSubmitted, f.inquiry(t, inquiry.ID).Status)
	require.Equal(t, outboxBefore, f.count(t, &models.OutboxEvent{}, ""))
	require.EqualValues(t, 0, f.count(t, &models.Notification{}, ""))
	require.Len(t, f.dispatcher.events, eventsBefore)
}

func TestNotifierFailureKeepsCommittedTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inquiry, items := f.submittedInquiry(t, 1)

	notifier := &failingNotifier{}
	f.engine.notifier = notifier

	_, err := f.engine.AssignItems(ctx, items, f.vp.UserID, f.manager)
	require.NoError(t, err)
	require.Equal(t, enums.InquiryItemStatusAssigned, f.item(t, items[0]).Status)
	require.Equal(t, enums.InquiryStatusAssigned, f.inquiry(t, inquiry.ID).Status)
	require.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventItemsAssigned))
	require.EqualValues(t, 0, f.count(t, &models.Notification{}, ""))
	require.Equal(t, 1, notifier.calls)

	_, err = f.engine.RecordCostCalculation(ctx, items[0], cost(100, 0, 0), f.vp)
	require.NoError(t, err)
	quote, err := f.engine.GenerateQuote(ctx, inquiry.ID, 0, f.sales)
	require.NoError(t, err)
	sent, err := f.engine.SendQuote(ctx, quote.ID, f.sales)
	require.NoError(t, err)
	require.Equal(t, enums.QuoteStatusSent, sent.Status)
	require.EqualValues(t, 0, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventEmailRequested))
}

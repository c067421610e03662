package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/quoteflow-backend/internal/repo/repotest"
	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRepositoryListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	userID := uuid.New()
	other := uuid.New()

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{UserID: userID, Type: enums.NotificationTypeQuoteUpdate, Title: "a", Message: "a", CreatedAt: base},
		{UserID: userID, Type: enums.NotificationTypeQuoteUpdate, Title: "b", Message: "b", CreatedAt: base.Add(time.Minute)},
		{UserID: other, Type: enums.NotificationTypeQuoteUpdate, Title: "c", Message: "c", CreatedAt: base},
	}
	require.NoError(t, repo.CreateMany(ctx, rows))

	list, err := repo.List(ctx, listNotificationsParams{UserID: userID, Page: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].Title)

	mark, err := repo.MarkRead(ctx, userID, list[0].ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, mark.Found)
	require.True(t, mark.Updated)

	again, err := repo.MarkRead(ctx, userID, list[0].ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, again.Found)
	require.False(t, again.Updated)

	foreign, err := repo.MarkRead(ctx, other, list[1].ID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, foreign.Found)

	unread, err := repo.List(ctx, listNotificationsParams{UserID: userID, UnreadOnly: true, Page: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, unread, 1)

	count, err := repo.MarkAllRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	conn := repotest.Open(t)
	repo := NewRepository(conn)
	userID := uuid.New()
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateMany(ctx, []models.Notification{
		{UserID: userID, Type: enums.NotificationTypeQuoteUpdate, Title: "old", Message: "old", CreatedAt: cutoff.Add(-time.Hour)},
		{UserID: userID, Type: enums.NotificationTypeQuoteUpdate, Title: "new", Message: "new", CreatedAt: cutoff.Add(time.Hour)},
	}))

	deleted, err := repo.DeleteOlderThan(ctx, nil, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	left, err := repo.List(ctx, listNotificationsParams{UserID: userID, Page: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "new", left[0].Title)
}

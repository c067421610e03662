package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

// fakeRepository keeps rows in memory and records the arguments it saw.
type fakeRepository struct {
	created   []models.Notification
	createErr error

	rows       []models.Notification
	lastList   listNotificationsParams
	markResult notificationMarkResult
	markedUser uuid.UUID
	markedAt   time.Time
	bulkCount  int64
	err        error
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) CreateMany(_ context.Context, notifications []models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeRepository) List(_ context.Context, params listNotificationsParams) ([]models.Notification, error) {
	f.lastList = params
	return f.rows, f.err
}

func (f *fakeRepository) MarkRead(_ context.Context, userID, _ uuid.UUID, now time.Time) (notificationMarkResult, error) {
	f.markedUser, f.markedAt = userID, now
	return f.markResult, f.err
}

func (f *fakeRepository) MarkAllRead(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	f.markedUser, f.markedAt = userID, now
	return f.bulkCount, f.err
}

func (f *fakeRepository) DeleteOlderThan(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestListReturnsCursorWhenMoreRowsExist(t *testing.T) {
	now := time.Now().UTC()
	newest := models.Notification{ID: uuid.New(), CreatedAt: now}
	older := models.Notification{ID: uuid.New(), CreatedAt: now.Add(-time.Hour)}
	repo := &fakeRepository{rows: []models.Notification{newest, older}}
	user := uuid.New()

	page, err := newTestService(t, repo).List(context.Background(), ListParams{UserID: user, Limit: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, newest.ID, page.Items[0].ID)

	require.Equal(t, user, repo.lastList.UserID)
	require.Equal(t, 1, repo.lastList.Page.Limit)
	require.True(t, repo.lastList.UnreadOnly)

	require.NotEmpty(t, page.NextCursor)
	cursor, err := pagination.ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, newest.ID, cursor.ID)
}

func TestListRejectsBadInput(t *testing.T) {
	tests := map[string]ListParams{
		"missing user": {},
		"bad cursor":   {UserID: uuid.New(), Cursor: "bad!"},
	}
	for name, params := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTestService(t, &fakeRepository{}).List(context.Background(), params)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestMarkRead(t *testing.T) {
	user := uuid.New()
	ctx := context.Background()

	repo := &fakeRepository{markResult: notificationMarkResult{Found: true, Updated: true}}
	require.NoError(t, newTestService(t, repo).MarkRead(ctx, user, uuid.New()))
	require.Equal(t, user, repo.markedUser)
	require.Equal(t, time.UTC, repo.markedAt.Location())

	// already read still counts as found
	repo = &fakeRepository{markResult: notificationMarkResult{Found: true}}
	require.NoError(t, newTestService(t, repo).MarkRead(ctx, user, uuid.New()))

	err := newTestService(t, &fakeRepository{}).MarkRead(ctx, user, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = newTestService(t, &fakeRepository{}).MarkRead(ctx, user, uuid.Nil)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestMarkAllRead(t *testing.T) {
	user := uuid.New()

	repo := &fakeRepository{bulkCount: 3}
	count, err := newTestService(t, repo).MarkAllRead(context.Background(), user)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
	require.Equal(t, user, repo.markedUser)

	_, err = newTestService(t, &fakeRepository{err: errors.New("boom")}).MarkAllRead(context.Background(), user)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

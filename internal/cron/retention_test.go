package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// inlineTx runs fn without a transaction.
type inlineTx struct{}

func (inlineTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type purgeRecorder struct {
	cutoffs     []time.Time
	maxAttempts int
	rows        int64
	err         error
}

func (p *purgeRecorder) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.rows, p.err
}

func (p *purgeRecorder) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	p.maxAttempts = maxAttempts
	return p.rows, p.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestNotificationCleanupUsesNinetyDayWindow(t *testing.T) {
	repo := &purgeRecorder{rows: 42}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), DB: inlineTx{}, Repository: repo})
	require.NoError(t, err)
	rj := job.(*retentionJob)
	rj.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.Equal(t, "notification-cleanup", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, []time.Time{time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)}, repo.cutoffs)
}

func TestOutboxRetentionPassesAttemptCeiling(t *testing.T) {
	repo := &purgeRecorder{rows: 7}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      testLogger(),
		DB:          inlineTx{},
		Repository:  repo,
		Retention:   3,
		MaxAttempts: 6,
	})
	require.NoError(t, err)
	rj := job.(*retentionJob)
	rj.now = func() time.Time { return time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC), repo.cutoffs[0])
	require.Equal(t, 6, repo.maxAttempts)
	require.Equal(t, 6, rj.fields["max_attempts"])
}

func TestOutboxRetentionDefaults(t *testing.T) {
	repo := &purgeRecorder{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: inlineTx{}, Repository: repo})
	require.NoError(t, err)
	rj := job.(*retentionJob)
	rj.now = func() time.Time { return time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), repo.cutoffs[0])
	require.Equal(t, outboxMaxAttempts, repo.maxAttempts)
}

func TestRetentionJobWrapsPurgeErrors(t *testing.T) {
	repo := &purgeRecorder{err: errors.New("boom")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), DB: inlineTx{}, Repository: repo})
	require.NoError(t, err)
	require.EqualError(t, job.Run(context.Background()), "notification-cleanup: boom")
}

func TestRetentionJobsValidateDependencies(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), DB: inlineTx{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{DB: inlineTx{}, Repository: &purgeRecorder{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: &purgeRecorder{}})
	require.Error(t, err)
}

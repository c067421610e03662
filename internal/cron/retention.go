package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

const (
	notificationRetentionDays = 90
	outboxRetentionDays       = 14
	outboxMaxAttempts         = 10
)

// txRunner opens the transaction a purge runs in.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows older than a rolling window of whole days.
type retentionJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	days   int
	purge  purgeFunc
	fields map[string]any
	now    func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, days int, purge purgeFunc) (*retentionJob, error) {
	switch {
	case logg == nil:
		return nil, errors.New("logger required")
	case db == nil:
		return nil, errors.New("db runner required")
	}
	return &retentionJob{
		name:   name,
		logg:   logg,
		db:     db,
		days:   days,
		purge:  purge,
		fields: map[string]any{},
		now:    time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var removed int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.purge(ctx, tx, cutoff)
		removed = n
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	fields := map[string]any{
		"job":            j.name,
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   removed,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention purge complete")
	return nil
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationPurger
	Retention  int
}

// NewNotificationCleanupJob prunes in-app notifications past the retention
// window, read or not.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	job, err := newRetentionJob("notification-cleanup", params.Logger, params.DB,
		positiveOr(params.Retention, notificationRetentionDays),
		params.Repository.DeleteOlderThan)
	if err != nil {
		return nil, err
	}
	return job, nil
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPurger
	Retention   int
	MaxAttempts int
}

// NewOutboxRetentionJob drops published outbox rows, and rows the publisher
// gave up on, once they are older than the retention window. MaxAttempts must
// match the publisher's ceiling.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	maxAttempts := positiveOr(params.MaxAttempts, outboxMaxAttempts)
	job, err := newRetentionJob("outbox-retention", params.Logger, params.DB,
		positiveOr(params.Retention, outboxRetentionDays),
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return params.Repository.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
		})
	if err != nil {
		return nil, err
	}
	job.fields["max_attempts"] = maxAttempts
	return job, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/isolation"
	"stratum/internal/notification/models"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

type fakeRepo struct {
	notifications map[uuid.UUID]models.Notification
	lastFilter    isolation.Filter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{notifications: make(map[uuid.UUID]models.Notification)}
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, ok := r.notifications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &notification, nil
}

func (r *fakeRepo) FindMany(_ context.Context, filter isolation.Filter) ([]models.Notification, error) {
	r.lastFilter = filter
	var out []models.Notification
	for _, notification := range r.notifications {
		out = append(out, notification)
	}
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, notification models.Notification) (*models.Notification, error) {
	r.notifications[notification.ID] = notification
	return &notification, nil
}

func newService(repo *fakeRepo) *Service {
	return New(repo, WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func TestEnqueue(t *testing.T) {
	svc := newService(newFakeRepo())

	notification, err := svc.Enqueue(context.Background(), uuid.New(), models.ChannelEmail, "Welcome", "Hello!")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, notification.Status)
	assert.Nil(t, notification.SentAt)
}

func TestEnqueueValidation(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, uuid.Nil, models.ChannelEmail, "Welcome", "")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = svc.Enqueue(ctx, uuid.New(), models.ChannelEmail, "   ", "")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestMarkSentLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	notification, err := svc.Enqueue(ctx, uuid.New(), models.ChannelSMS, "Code", "123456")
	require.NoError(t, err)

	sent, err := svc.MarkSent(ctx, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	// Terminal states do not transition again.
	_, err = svc.MarkSent(ctx, notification.ID)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))

	_, err = svc.MarkFailed(ctx, notification.ID)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}

func TestMarkFailed(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	notification, err := svc.Enqueue(ctx, uuid.New(), models.ChannelWebhook, "Event", "{}")
	require.NoError(t, err)

	failed, err := svc.MarkFailed(ctx, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Nil(t, failed.SentAt)
}

func TestListForRecipientShapesFilter(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	recipient := uuid.New()

	_, err := svc.ListForRecipient(context.Background(), recipient, 20)
	require.NoError(t, err)

	require.Len(t, repo.lastFilter.Conds, 1)
	assert.Equal(t, "recipient", repo.lastFilter.Conds[0].Column)
	assert.Equal(t, recipient, repo.lastFilter.Conds[0].Value)
	assert.Equal(t, "created_at", repo.lastFilter.OrderBy)
	assert.True(t, repo.lastFilter.Desc)
	assert.Equal(t, 20, repo.lastFilter.Limit)
}

func TestGetNotFound(t *testing.T) {
	svc := newService(newFakeRepo())

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestParseChannel(t *testing.T) {
	channel, err := models.ParseChannel("webhook")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelWebhook, channel)

	_, err = models.ParseChannel("carrier-pigeon")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

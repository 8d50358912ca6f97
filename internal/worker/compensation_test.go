package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"sav-service/internal/gateway"
	"sav-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retryStore struct {
	intents map[int64]*models.CompensationIntent
}

func newRetryStore(intents ...*models.CompensationIntent) *retryStore {
	s := &retryStore{intents: make(map[int64]*models.CompensationIntent)}
	for _, intent := range intents {
		s.intents[intent.ID] = intent
	}
	return s
}

func (s *retryStore) ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error) {
	var out []models.CompensationIntent
	for _, intent := range s.intents {
		if intent.Status == models.CompensationStatusPending {
			out = append(out, *intent)
		}
	}
	return out, nil
}

func (s *retryStore) ResolveCompensationIntent(ctx context.Context, intentID int64) error {
	s.intents[intentID].Status = models.CompensationStatusResolved
	return nil
}

func (s *retryStore) RecordCompensationAttempt(ctx context.Context, intentID int64, lastError string) error {
	s.intents[intentID].Attempts++
	s.intents[intentID].LastError = lastError
	return nil
}

func (s *retryStore) AbandonCompensationIntent(ctx context.Context, intentID int64) error {
	s.intents[intentID].Status = models.CompensationStatusAbandoned
	return nil
}

func (s *retryStore) CountPendingCompensations(ctx context.Context) (int, error) {
	n := 0
	for _, intent := range s.intents {
		if intent.Status == models.CompensationStatusPending {
			n++
		}
	}
	return n, nil
}

type retryInventory struct {
	restoreErr error
	deductErr  error
	restores   []string
	deducts    []string
}

func (i *retryInventory) GetPart(ctx context.Context, partID int64) (*gateway.Part, error) {
	return nil, errors.New("not used by the retrier")
}

func (i *retryInventory) DeductStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	if i.deductErr != nil {
		return i.deductErr
	}
	i.deducts = append(i.deducts, correlationID)
	return nil
}

func (i *retryInventory) RestoreStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	if i.restoreErr != nil {
		return i.restoreErr
	}
	i.restores = append(i.restores, correlationID)
	return nil
}

type memCache struct {
	applied map[string]bool
}

func (c *memCache) MarkCorrelationApplied(ctx context.Context, correlationID string, ttl time.Duration) error {
	if c.applied == nil {
		c.applied = make(map[string]bool)
	}
	c.applied[correlationID] = true
	return nil
}

func (c *memCache) IsCorrelationApplied(ctx context.Context, correlationID string) (bool, error) {
	return c.applied[correlationID], nil
}

func pendingIntent(id int64, kind string) *models.CompensationIntent {
	return &models.CompensationIntent{
		ID:             id,
		Kind:           kind,
		InterventionID: 1,
		PartID:         7,
		Quantity:       2,
		CorrelationID:  "corr-7",
		Status:         models.CompensationStatusPending,
	}
}

func TestRetrierResolvesRestoreIntent(t *testing.T) {
	store := newRetryStore(pendingIntent(1, models.CompensationKindRestoreStock))
	inv := &retryInventory{}
	r := NewCompensationRetrier(store, inv, nil, time.Second, 3)

	r.runOnce(context.Background())

	assert.Equal(t, models.CompensationStatusResolved, store.intents[1].Status)
	require.Len(t, inv.restores, 1)
	assert.Equal(t, "corr-7", inv.restores[0], "the original correlation id is replayed")
	assert.Empty(t, inv.deducts)
}

func TestRetrierReplaysDeductIntent(t *testing.T) {
	store := newRetryStore(pendingIntent(1, models.CompensationKindDeductStock))
	inv := &retryInventory{}
	r := NewCompensationRetrier(store, inv, nil, time.Second, 3)

	r.runOnce(context.Background())

	assert.Equal(t, models.CompensationStatusResolved, store.intents[1].Status)
	require.Len(t, inv.deducts, 1)
}

func TestRetrierRecordsFailedAttempts(t *testing.T) {
	store := newRetryStore(pendingIntent(1, models.CompensationKindRestoreStock))
	inv := &retryInventory{restoreErr: errors.New("inventory unreachable")}
	r := NewCompensationRetrier(store, inv, nil, time.Second, 3)

	r.runOnce(context.Background())

	intent := store.intents[1]
	assert.Equal(t, models.CompensationStatusPending, intent.Status)
	assert.Equal(t, 1, intent.Attempts)
	assert.Equal(t, "inventory unreachable", intent.LastError)
}

func TestRetrierAbandonsAfterMaxAttempts(t *testing.T) {
	intent := pendingIntent(1, models.CompensationKindRestoreStock)
	intent.Attempts = 2
	store := newRetryStore(intent)
	inv := &retryInventory{restoreErr: errors.New("still down")}
	r := NewCompensationRetrier(store, inv, nil, time.Second, 3)

	r.runOnce(context.Background())

	assert.Equal(t, models.CompensationStatusAbandoned, store.intents[1].Status)
}

func TestRetrierSkipsAlreadyAppliedCorrelation(t *testing.T) {
	store := newRetryStore(pendingIntent(1, models.CompensationKindRestoreStock))
	inv := &retryInventory{}
	cache := &memCache{applied: map[string]bool{"corr-7": true}}
	r := NewCompensationRetrier(store, inv, cache, time.Second, 3)

	r.runOnce(context.Background())

	assert.Equal(t, models.CompensationStatusResolved, store.intents[1].Status)
	assert.Empty(t, inv.restores, "no second remote mutation for an applied correlation")
}

func TestRetrierCachesAppliedCorrelation(t *testing.T) {
	store := newRetryStore(pendingIntent(1, models.CompensationKindRestoreStock))
	inv := &retryInventory{}
	cache := &memCache{}
	r := NewCompensationRetrier(store, inv, cache, time.Second, 3)

	r.runOnce(context.Background())

	assert.True(t, cache.applied["corr-7"])
}

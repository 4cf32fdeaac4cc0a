package worker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository/memory"
	"github.com/jwalitptl/orms-api/pkg/logger"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

func TestOutboxCleanupWorker_Cleanup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	ctx := context.Background()

	store.SetClock(func() time.Time { return now.Add(-48 * time.Hour) })
	old := &model.OutboxEvent{EventType: model.EventInvoiceCreated, Payload: []byte(`{}`)}
	require.NoError(t, store.Outbox().Create(ctx, old))
	require.NoError(t, store.Outbox().UpdateStatus(ctx, old.ID, model.OutboxStatusProcessed, nil))

	store.SetClock(func() time.Time { return now })
	fresh := &model.OutboxEvent{EventType: model.EventInvoicePaid, Payload: []byte(`{}`)}
	require.NoError(t, store.Outbox().Create(ctx, fresh))
	require.NoError(t, store.Outbox().UpdateStatus(ctx, fresh.ID, model.OutboxStatusProcessed, nil))

	m := metrics.New("test")
	w := NewOutboxCleanupWorker(store.Outbox(), 24*time.Hour, time.Hour,
		logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: &bytes.Buffer{}}), m)
	w.now = func() time.Time { return now }

	rows, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsPurged))
	assert.Len(t, store.OutboxEvents(), 1)
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/pkg/logger"
	"github.com/jwalitptl/orms-api/pkg/messaging"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor publishes pending outbox events to the broker. Each batch
// is claimed and settled inside one transaction so concurrent workers never
// publish the same event twice.
type OutboxProcessor struct {
	store   repository.Store
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	store repository.Store,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}
	if config.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were
// published successfully.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published := 0
	err := p.store.WithTx(ctx, func(tx repository.Store) error {
		events, err := tx.Outbox().ClaimPending(ctx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "error").Inc()
			return fmt.Errorf("failed to claim pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "success").Inc()

		for _, event := range events {
			ok, err := p.processEvent(ctx, tx.Outbox(), event)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

func (p *OutboxProcessor) processEvent(ctx context.Context, repo repository.OutboxRepository, event *model.OutboxEvent) (bool, error) {
	msg := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}

	if pubErr := p.broker.Publish(ctx, p.config.Channel, msg); pubErr != nil {
		p.metrics.OutboxEventsFailed.Inc()
		errStr := pubErr.Error()

		if event.RetryCount+1 >= p.config.RetryAttempts {
			p.logger.Error(pubErr, "Giving up on event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			if err := repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr); err != nil {
				return false, fmt.Errorf("failed to mark event %s failed: %w", event.ID, err)
			}
			return false, nil
		}

		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		retryAt := p.now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
		if err := repo.ScheduleRetry(ctx, event.ID, retryAt, errStr); err != nil {
			return false, fmt.Errorf("failed to schedule retry for event %s: %w", event.ID, err)
		}
		return false, nil
	}

	if err := repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
		return false, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
	}
	p.metrics.OutboxEventsProcessed.Inc()
	return true, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/pkg/config"
	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
	"github.com/amaliareyes/seamline-backend/pkg/metrics"
	"github.com/amaliareyes/seamline-backend/pkg/outbox"
)

const (
	defaultBatchSize       = 50
	defaultPollInterval    = 500 * time.Millisecond
	defaultDeliveryTimeout = 15 * time.Second
	defaultMaxAttempts     = 10
	defaultWorkers         = 4
	maxBackoff             = 10 * time.Second
	jitterWindow           = 250 * time.Millisecond
)

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
}

// Delivery is one decoded outbox row handed to the sink.
type Delivery struct {
	OutboxID      uuid.UUID
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}

// Sink receives committed domain events drained from the outbox table.
type Sink interface {
	Deliver(ctx context.Context, delivery Delivery) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Sink       Sink
	Metrics    *metrics.SettlementMetrics
}

type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	sink         Sink
	metrics      *metrics.SettlementMetrics
	batchSize    int
	maxAttempts  int
	workers      int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}

	sink := params.Sink
	if sink == nil {
		sink = &logSink{logg: params.Logger}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.Config.Outbox.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	workers := params.Config.Outbox.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		sink:         sink,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		workers:      workers,
		pollInterval: poll,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Run drains the outbox until the context is canceled. Workers claim
// disjoint batches through SKIP LOCKED, so they never double-deliver.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		worker := i
		group.Go(func() error {
			workerCtx := s.logg.WithField(groupCtx, "worker", worker)
			return s.runWorker(workerCtx)
		})
	}
	return group.Wait()
}

func (s *Service) runWorker(ctx context.Context) error {
	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			delivery, err := decodeDelivery(event)
			if err != nil {
				s.recordFailure(ctx, tx, event, err)
				continue
			}

			deliverCtx, cancel := context.WithTimeout(ctx, defaultDeliveryTimeout)
			err = s.sink.Deliver(deliverCtx, delivery)
			cancel()
			if err != nil {
				s.recordFailure(ctx, tx, event, err)
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.metrics.IncOutboxPublished("ok")
			s.logg.Info(s.logg.WithFields(ctx, s.eventFields(event, delivery)), "outbox event published")
		}
		return nil
	})
	return processed, err
}

func (s *Service) recordFailure(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, err error) {
	s.metrics.IncOutboxPublished("error")
	fields := s.eventFields(event, Delivery{})
	fields["attempt_count"] = event.AttemptCount + 1
	ctxWithFields := s.logg.WithFields(ctx, fields)
	ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
	if event.AttemptCount+1 >= s.maxAttempts {
		s.logg.Warn(ctxWithFields, "outbox event exhausted its attempts")
	} else {
		s.logg.Warn(ctxWithFields, "outbox publish failed")
	}
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		s.logg.Error(ctx, fmt.Sprintf("mark failure %s", event.ID), markErr)
	}
}

func decodeDelivery(event models.OutboxEvent) (Delivery, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return Delivery{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	return Delivery{
		OutboxID:      event.ID,
		EventID:       envelope.EventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    envelope.OccurredAt,
		Actor:         envelope.Actor,
		Payload:       envelope.Data,
	}, nil
}

func (s *Service) eventFields(event models.OutboxEvent, delivery Delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if delivery.EventID != "" {
		fields["event_id"] = delivery.EventID
		fields["occurred_at"] = delivery.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	jitterMu.Unlock()
	return d + jitter
}

// logSink records each delivery as a structured log line. Downstream
// consumers tail these; there is no external broker in this deployment.
type logSink struct {
	logg *logger.Logger
}

func (s *logSink) Deliver(ctx context.Context, delivery Delivery) error {
	if s.logg == nil {
		return errors.New("log sink requires a logger")
	}
	fields := map[string]any{
		"event_id":       delivery.EventID,
		"event_type":     delivery.EventType,
		"aggregate_type": delivery.AggregateType,
		"aggregate_id":   delivery.AggregateID.String(),
		"occurred_at":    delivery.OccurredAt.Format(time.RFC3339Nano),
		"payload":        json.RawMessage(delivery.Payload),
	}
	if delivery.Actor != nil {
		fields["actor_user_id"] = delivery.Actor.UserID.String()
		fields["actor_role"] = delivery.Actor.Role
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "domain event delivered")
	return nil
}

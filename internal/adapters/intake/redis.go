package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"github.com/mikey/threat-alert-engine/internal/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// PayloadFactor names the synthetic term used when a message cannot be decoded
	PayloadFactor = "payload"

	retryDelay = time.Second

	defaultClaimInterval = 15 * time.Second
	defaultMaxDeliveries = 5
)

// NewRedisClient connects to the configured Redis server
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisIntake consumes security events from a Redis stream through a consumer
// group and publishes each decision to a second stream.
//
// Each message carries the JSON event in its "event" field. A message whose
// event cannot be decoded is still assessed with fully corrupted evidence when
// a "home_id" field is present, so that it resolves to the fail-safe decision.
//
// Messages that fail stay in the group's pending list. They are claimed back
// at start-up and every ClaimInterval once idle for ClaimMinIdle. After
// MaxDeliveries failed deliveries the evidence is no longer trusted and a
// fail-safe decision is published instead.
type RedisIntake struct {
	client   redis.Cmdable
	assessor ports.Assessor
	cfg      config.RedisConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisIntake creates the intake. It does not read until Start.
func NewRedisIntake(client redis.Cmdable, assessor ports.Assessor, cfg config.RedisConfig, logger *zap.Logger, m *metrics.Metrics) *RedisIntake {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = defaultClaimInterval
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = defaultMaxDeliveries
	}
	return &RedisIntake{
		client:   client,
		assessor: assessor,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Start ensures the consumer group exists and begins consuming in the background
func (ri *RedisIntake) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	err := ri.client.XGroupCreateMkStream(ctx, ri.cfg.Stream, ri.cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group %s: %w", ri.cfg.Group, err)
	}

	ri.cancel = cancel
	ri.wg.Add(1)
	go ri.consume(ctx)

	ri.logger.Info("Redis intake started",
		zap.String("stream", ri.cfg.Stream),
		zap.String("group", ri.cfg.Group),
		zap.String("consumer", ri.cfg.Consumer))
	return nil
}

// Stop cancels the consumer loop and waits for in-flight messages
func (ri *RedisIntake) Stop() error {
	if ri.cancel != nil {
		ri.cancel()
	}
	ri.wg.Wait()
	if closer, ok := ri.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	return nil
}

func (ri *RedisIntake) consume(ctx context.Context) {
	defer ri.wg.Done()

	ri.reclaim(ctx)
	nextClaim := time.Now().Add(ri.cfg.ClaimInterval)

	for ctx.Err() == nil {
		if !time.Now().Before(nextClaim) {
			ri.reclaim(ctx)
			nextClaim = time.Now().Add(ri.cfg.ClaimInterval)
		}

		streams, err := ri.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ri.cfg.Group,
			Consumer: ri.cfg.Consumer,
			Streams:  []string{ri.cfg.Stream, ">"},
			Count:    ri.cfg.BatchSize,
			Block:    ri.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			ri.logger.Error("Failed to read from stream", zap.String("stream", ri.cfg.Stream), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := ri.handleMessage(ctx, msg); err != nil {
					ri.leavePending(msg.ID, 1, err)
				}
			}
		}
	}
}

// reclaim takes over idle pending messages of the group, including those of
// consumers that went away, and processes them again
func (ri *RedisIntake) reclaim(ctx context.Context) {
	start := "-"
	for ctx.Err() == nil {
		pending, err := ri.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: ri.cfg.Stream,
			Group:  ri.cfg.Group,
			Idle:   ri.cfg.ClaimMinIdle,
			Start:  start,
			End:    "+",
			Count:  ri.cfg.BatchSize,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				ri.logger.Error("Failed to list pending messages", zap.String("stream", ri.cfg.Stream), zap.Error(err))
			}
			return
		}
		if len(pending) == 0 {
			return
		}

		deliveries := make(map[string]int64, len(pending))
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			deliveries[p.ID] = p.RetryCount
			ids = append(ids, p.ID)
		}

		messages, err := ri.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   ri.cfg.Stream,
			Group:    ri.cfg.Group,
			Consumer: ri.cfg.Consumer,
			MinIdle:  ri.cfg.ClaimMinIdle,
			Messages: ids,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				ri.logger.Error("Failed to claim pending messages", zap.String("stream", ri.cfg.Stream), zap.Error(err))
			}
			return
		}

		for _, msg := range messages {
			ri.metrics.IncrementIntake("redis", "reclaimed")
			delivered := deliveries[msg.ID]

			if delivered >= ri.cfg.MaxDeliveries {
				err = ri.handleExhausted(ctx, msg, delivered)
			} else {
				err = ri.handleMessage(ctx, msg)
			}
			if err != nil {
				ri.leavePending(msg.ID, delivered+1, err)
			}
		}

		if int64(len(pending)) < ri.cfg.BatchSize {
			return
		}
		start = "(" + pending[len(pending)-1].ID
	}
}

func (ri *RedisIntake) leavePending(id string, delivery int64, err error) {
	ri.logger.Warn("Leaving message pending",
		zap.String("message_id", id),
		zap.Int64("delivery", delivery),
		zap.Error(err))
}

// handleMessage assesses one message, publishes the decision and acks it.
// A returned error leaves the message pending for redelivery.
func (ri *RedisIntake) handleMessage(ctx context.Context, msg redis.XMessage) error {
	event, err := DecodeMessage(msg)
	if err != nil {
		return ri.dropUndecodable(ctx, msg, err)
	}
	return ri.process(ctx, msg.ID, event)
}

// handleExhausted publishes a fail-safe decision for a message that failed
// on every delivery so far. Its evidence is replaced by a single unusable term.
func (ri *RedisIntake) handleExhausted(ctx context.Context, msg redis.XMessage, delivered int64) error {
	event, err := DecodeMessage(msg)
	if err != nil {
		return ri.dropUndecodable(ctx, msg, err)
	}

	ri.metrics.IncrementIntake("redis", "fail_safe")
	ri.logger.Error("Delivery limit reached, publishing fail-safe decision",
		zap.String("message_id", msg.ID),
		zap.String("home_id", event.HomeID),
		zap.Int64("deliveries", delivered))

	failSafe := &core.SecurityEvent{
		EventID:   event.EventID,
		HomeID:    event.HomeID,
		CameraID:  event.CameraID,
		Timestamp: event.Timestamp,
		Evidence:  core.Evidence{{Factor: PayloadFactor, Weight: math.NaN()}},
	}
	return ri.process(ctx, msg.ID, failSafe)
}

func (ri *RedisIntake) dropUndecodable(ctx context.Context, msg redis.XMessage, err error) error {
	ri.metrics.IncrementIntake("redis", "decode_error")
	ri.logger.Warn("Dropping undecodable message", zap.String("message_id", msg.ID), zap.Error(err))
	return ri.client.XAck(ctx, ri.cfg.Stream, ri.cfg.Group, msg.ID).Err()
}

func (ri *RedisIntake) process(ctx context.Context, msgID string, event *core.SecurityEvent) error {
	record, err := ri.assessor.Assess(ctx, event)
	if err != nil {
		return fmt.Errorf("assess: %w", err)
	}

	if ri.cfg.DecisionStream != "" {
		values, err := DecisionValues(record)
		if err != nil {
			return err
		}
		if err := ri.client.XAdd(ctx, &redis.XAddArgs{
			Stream: ri.cfg.DecisionStream,
			Values: values,
		}).Err(); err != nil {
			ri.metrics.IncrementIntake("redis", "publish_error")
			return fmt.Errorf("publish decision: %w", err)
		}
	}

	if err := ri.client.XAck(ctx, ri.cfg.Stream, ri.cfg.Group, msgID).Err(); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	ri.metrics.IncrementIntake("redis", "ok")
	return nil
}

// DecodeMessage extracts the event from a stream message. A payload that
// does not parse yields an event with a single non-finite term as long as the
// home can be identified; otherwise an error is returned.
func DecodeMessage(msg redis.XMessage) (*core.SecurityEvent, error) {
	raw, _ := msg.Values["event"].(string)

	var event core.SecurityEvent
	decodeErr := json.Unmarshal([]byte(raw), &event)
	homeID, _ := msg.Values["home_id"].(string)

	if decodeErr == nil {
		if event.HomeID == "" {
			event.HomeID = homeID
		}
		if event.HomeID == "" {
			return nil, fmt.Errorf("message %s: missing home_id", msg.ID)
		}
		if event.EventID == "" {
			event.EventID = msg.ID
		}
		return &event, nil
	}

	if homeID == "" {
		return nil, fmt.Errorf("message %s: %w", msg.ID, decodeErr)
	}

	corrupted := &core.SecurityEvent{
		EventID:  msg.ID,
		HomeID:   homeID,
		Evidence: core.Evidence{{Factor: PayloadFactor, Weight: math.NaN()}},
	}
	if camera, ok := msg.Values["camera_id"].(string); ok {
		corrupted.CameraID = camera
	}
	return corrupted, nil
}

// DecisionValues renders a record as decision stream fields
func DecisionValues(record *core.AssessmentRecord) (map[string]any, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode decision: %w", err)
	}

	probability := ""
	if v, ok := record.Assessment.Probability.Value(); ok {
		probability = strconv.FormatFloat(v, 'f', 6, 64)
	}

	return map[string]any{
		"assessment_id": record.ID,
		"home_id":       record.HomeID,
		"event_id":      record.EventID,
		"decision":      record.Assessment.Decision.String(),
		"probability":   probability,
		"record":        string(payload),
	}, nil
}

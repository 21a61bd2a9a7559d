package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

// StreamReader is the part of the Redis client a Subscriber needs.
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

const (
	// backlog reads this consumer's delivered but unacknowledged entries.
	backlog = "0"
	// fresh reads entries never delivered to the group.
	fresh = ">"
)

type Subscriber struct {
	client        StreamReader
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryDelay    time.Duration
	logger        *zap.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// RetryDelay is the pause after a read error or a failed handler.
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func NewSubscriber(client StreamReader, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryDelay:    config.RetryDelay,
		logger: config.Logger.With(
			zap.String("stream", config.Stream),
			zap.String("group", config.Group),
			zap.String("consumer", config.Consumer),
		),
	}
}

// Start consumes until ctx is cancelled. The consumer's own pending entries
// are replayed first, and again after any handler failure, so a failed
// event is retried until it is acknowledged.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.logger.Info("subscriber started")

	start := backlog
	for {
		if ctx.Err() != nil {
			s.logger.Info("subscriber stopping")
			return ctx.Err()
		}

		delivered, failed, err := s.readBatch(ctx, start)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Warn("failed to read messages", zap.Error(err))
			s.pause(ctx)
		case failed > 0:
			start = backlog
			s.pause(ctx)
		case start == backlog && delivered == 0:
			start = fresh
		}
	}
}

// readBatch handles one read and reports how many entries it saw and how
// many were left pending.
func (s *Subscriber) readBatch(ctx context.Context, start string) (delivered, failed int, err error) {
	args := &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, start},
		Count:    s.batchSize,
	}
	if start == fresh {
		args.Block = s.blockDuration
	}
	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			delivered++
			if !s.process(ctx, message) {
				failed++
				continue
			}
			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				s.logger.Warn("failed to ack message", zap.String("id", message.ID), zap.Error(err))
			}
		}
	}
	return delivered, failed, nil
}

// process reports whether the message can be acknowledged. Entries that do
// not decode are acknowledged too: no retry can fix them.
func (s *Subscriber) process(ctx context.Context, message redis.XMessage) bool {
	event, err := ParseMessage(message)
	if err != nil {
		s.logger.Error("dropping malformed message", zap.String("id", message.ID), zap.Error(err))
		return true
	}
	if err := s.handler(ctx, event); err != nil {
		s.logger.Warn("failed to process message",
			zap.String("id", message.ID),
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(err))
		return false
	}
	return true
}

func (s *Subscriber) pause(ctx context.Context) {
	t := time.NewTimer(s.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ParseMessage decodes the envelope stored in a stream entry.
func ParseMessage(message redis.XMessage) (Event, error) {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return Event{}, errors.New("invalid message format: missing event field")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

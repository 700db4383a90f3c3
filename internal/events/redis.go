package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes events as JSON to a Redis channel so external
// consumers (a UI, a logging pipeline) can subscribe.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(addr, channel string) *RedisSink {
	return &RedisSink{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

func (s *RedisSink) Notify(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Msg("Failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Str("channel", s.channel).Msg("Failed to publish event")
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(change.Table), string(data)).Err()
}

type RedisSubscriber struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisSubscriber(client *redis.Client, log *zap.Logger) *RedisSubscriber {
	return &RedisSubscriber{client: client, log: log}
}

// Subscribe opens one underlying pub/sub feed on channel and invokes handler
// for every decoded change until ctx is cancelled.
func (s *RedisSubscriber) Subscribe(ctx context.Context, channel string, handler func(Change)) error {
	pubsub := s.client.Subscribe(ctx, channel)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					s.log.Error("failed to unmarshal change event", zap.Error(err))
					continue
				}
				handler(change)
			}
		}
	}()

	return nil
}

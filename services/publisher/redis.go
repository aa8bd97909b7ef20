package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/logger"
)

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
	}
}

// PublishOffers publishes each offer to the Redis stream.
// The JSON payload is base64 encoded before publishing
func (p *RedisPublisher) PublishOffers(ctx context.Context, offers []extract.Offer) error {
	if len(offers) == 0 {
		return nil
	}
	for _, offer := range offers {
		payload, err := json.Marshal(offer)
		if err != nil {
			return err
		}
		encoded := base64.StdEncoding.EncodeToString(payload)

		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"b64_offer": encoded,
			},
		}).Err()
		if err != nil {
			return err
		}
	}
	logger.ForPublisher().Debug().Int("offers", len(offers)).Str("stream", p.stream).Msg("offers published")
	return nil
}

// TrimStream trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStream(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	return p.client.XTrimMaxLen(ctx, p.stream, int64(p.streamMaxLength)).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

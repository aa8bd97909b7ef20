package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"yjkwon/offerharvester/internal/extract"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher("localhost:6379", 0, "test_stream_offers", 1000)
	defer publisher.Close()

	// Create a subscriber to verify the message was published
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	// Test if Redis is available
	_, err := client.Ping(ctx).Result()
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	err = client.XGroupCreateMkStream(ctx, "test_stream_offers", "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		panic(err)
	}

	messages := make(chan string, 1)

	go func() {
		message, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{"test_stream_offers", ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		assert.NoError(t, err)
		messages <- message[0].Messages[0].Values["b64_offer"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	amount := 28.0
	err = publisher.PublishOffers(ctx, []extract.Offer{{
		SourceSite:      "glowshop",
		SourceProductID: "glowshop:1",
		VariantSKU:      "HS-100-30",
		PriceAmount:     &amount,
		PriceCurrency:   "USD",
	}})
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		decoded, err := base64.StdEncoding.DecodeString(msg)
		assert.NoError(t, err)
		var offer extract.Offer
		assert.NoError(t, json.Unmarshal(decoded, &offer))
		assert.Equal(t, "HS-100-30", offer.VariantSKU)
		assert.Equal(t, "USD", offer.PriceCurrency)
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishOffers(context.Background(), nil))
	assert.NoError(t, p.TrimStream(context.Background()))
	assert.NoError(t, p.Close())
}

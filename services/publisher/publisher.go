package publisher

import (
	"context"

	"yjkwon/offerharvester/internal/extract"
)

// Publisher represents a service for publishing extracted offers to
// downstream consumers
type Publisher interface {
	// PublishOffers publishes a batch of offers
	PublishOffers(ctx context.Context, offers []extract.Offer) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// Noop discards everything, used when no broker is configured.
type Noop struct{}

func (Noop) PublishOffers(context.Context, []extract.Offer) error { return nil }
func (Noop) TrimStream(context.Context) error                     { return nil }
func (Noop) Close() error                                         { return nil }

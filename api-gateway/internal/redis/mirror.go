package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aaronwang/auction-platform/api-gateway/internal/events"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Mirror copies bus updates to Redis pub/sub for the broadcast service
type Mirror struct {
	client redis.Cmdable
	closer func() error
}

// NewMirror connects to Redis and returns a mirror
func NewMirror(addr, password string, db int) (*Mirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Mirror{client: rdb, closer: rdb.Close}, nil
}

// NewMirrorWithClient wraps an existing client
func NewMirrorWithClient(client redis.Cmdable) *Mirror {
	return &Mirror{client: client}
}

// Name identifies the sink in logs
func (m *Mirror) Name() string { return "redis" }

// Forward publishes msg on the auction's update channel. Auction updates are
// also stored as the latest known state so late joiners can be greeted with it.
func (m *Mirror) Forward(ctx context.Context, msg events.Message) error {
	auctionID := models.AuctionIDOf(msg.Payload)
	if auctionID == "" {
		return nil
	}

	update := models.AuctionUpdate{
		Type:      msg.Type,
		AuctionID: auctionID,
		Payload:   msg.Payload,
	}
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	if msg.Type == models.UpdateAuction {
		if err := m.client.Set(ctx, models.LatestKeyPrefix+auctionID, data, 0).Err(); err != nil {
			return fmt.Errorf("failed to store latest state: %w", err)
		}
	}
	return m.client.Publish(ctx, models.UpdateChannelPrefix+auctionID, data).Err()
}

// Close closes the Redis connection
func (m *Mirror) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/shared/models"
)

// Subscriber wraps Redis Pub/Sub functionality
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    *logrus.Entry
}

// NewSubscriber creates a new Redis Pub/Sub subscriber
func NewSubscriber(addr, password string, db int, log *logrus.Entry) (*Subscriber, error) {
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

	return &Subscriber{client: rdb, log: log}, nil
}

// SubscribeToUpdates pattern-subscribes to the update channel of every auction
func (s *Subscriber) SubscribeToUpdates(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, models.UpdateChannelPrefix+"*")
	// Receive confirms the subscription before any publish can be missed
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Listen forwards messages to out until ctx is done or the subscription
// closes. This is a blocking operation - run in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, out chan<- *Message) error {
	if s.pubsub == nil {
		return errors.New("not subscribed to any channel")
	}

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			auctionID := AuctionIDFromChannel(msg.Channel)
			if auctionID == "" {
				s.log.WithField("channel", msg.Channel).Warn("Ignoring message on unexpected channel")
				continue
			}
			select {
			case out <- &Message{AuctionID: auctionID, Payload: msg.Payload}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Latest returns the last auction state the gateway mirrored, or nil
func (s *Subscriber) Latest(ctx context.Context, auctionID string) ([]byte, error) {
	data, err := s.client.Get(ctx, models.LatestKeyPrefix+auctionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest state: %w", err)
	}
	return data, nil
}

// Message is one update received from Redis
type Message struct {
	AuctionID string
	Payload   string
}

// AuctionIDFromChannel extracts the auction id from an update channel name
func AuctionIDFromChannel(channel string) string {
	id, ok := strings.CutPrefix(channel, models.UpdateChannelPrefix)
	if !ok {
		return ""
	}
	return id
}

// Close closes the subscriber
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
	return s.client.Close()
}

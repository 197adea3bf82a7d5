// Package streaming holds the JetStream setup shared by the gateway and the
// archival worker.
package streaming

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/aaronwang/auction-platform/shared/models"
)

// HistoryStreamConfig describes the stream that archives history events.
// Work-queue retention removes each message once the archival worker acks it.
func HistoryStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        models.HistoryStream,
		Description: "Auction history events for archival",
		Subjects:    []string{models.HistorySubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	}
}

// Connect dials NATS and returns a JetStream context on which the history
// stream is guaranteed to exist
func Connect(ctx context.Context, url, name string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, HistoryStreamConfig()); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create/update stream: %w", err)
	}
	return nc, js, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/aaronwang/auction-platform/shared/models"
)

// PostgresClient wraps the PostgreSQL database connection
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// NewWithDB wraps an already opened database
func NewWithDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// InitSchema creates the archive table
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS auction_events (
		id VARCHAR(64) PRIMARY KEY,
		auction_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(16) NOT NULL,
		payload TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_auction_events_auction_id ON auction_events(auction_id);
	CREATE INDEX IF NOT EXISTS idx_auction_events_occurred_at ON auction_events(occurred_at);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertEvent archives a history event. Redelivered events are ignored.
// It reports whether a new row was written.
func (c *PostgresClient) InsertEvent(ctx context.Context, event *models.HistoryEvent) (bool, error) {
	query := `
		INSERT INTO auction_events (id, auction_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := c.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.AuctionID,
		string(event.EventType),
		event.Payload,
		fromEpoch(event.Timestamp),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListEvents returns the archived events of an auction, oldest first
func (c *PostgresClient) ListEvents(ctx context.Context, auctionID string, limit int) ([]*models.HistoryEvent, error) {
	query := `
		SELECT id, auction_id, event_type, payload, occurred_at
		FROM auction_events
		WHERE auction_id = $1
		ORDER BY occurred_at ASC
		LIMIT $2
	`

	rows, err := c.db.QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.HistoryEvent
	for rows.Next() {
		var (
			event      models.HistoryEvent
			eventType  string
			occurredAt time.Time
		)
		if err := rows.Scan(&event.ID, &event.AuctionID, &eventType, &event.Payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.EventType = models.EventType(eventType)
		event.Timestamp = models.EpochSeconds(occurredAt)
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.db.Close()
}

func fromEpoch(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}

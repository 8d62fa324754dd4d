// Package clickhouse records completed draws for analytics.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS team_draws (
		draw_id      String,
		owner_id     String,
		drawn_at     DateTime64(3),
		team         String,
		team_index   UInt8,
		player_id    String,
		player_name  String,
		rating       UInt8,
		team_average UInt8,
		spread       UInt32
	) ENGINE = MergeTree()
	ORDER BY (owner_id, drawn_at, draw_id)
`

// DrawStats summarizes an owner's draws.
type DrawStats struct {
	Draws     uint64  `json:"draws"`
	AvgSpread float64 `json:"avgSpread"`
}

// Analytics is implemented by Client and by the in-memory mock.
type Analytics interface {
	RecordDraw(ctx context.Context, result *models.DrawResult) error
	OwnerDrawStats(ctx context.Context, owner string) (DrawStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Client provides ClickHouse integration for draw analytics
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client and ensures the table exists.
func NewClient(ctx context.Context, addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create team_draws table: %w", err)
	}

	return &Client{conn: conn}, nil
}

// RecordDraw inserts one row per assigned player in a single batch.
func (c *Client) RecordDraw(ctx context.Context, result *models.DrawResult) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO team_draws")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i, team := range result.Teams {
		for _, p := range team.Members {
			if err := batch.Append(
				result.ID,
				result.Owner,
				result.CreatedAt,
				team.Name,
				uint8(i),
				p.ID,
				p.Name,
				uint8(p.Rating),
				uint8(team.Average),
				uint32(result.Spread),
			); err != nil {
				_ = batch.Abort()
				return fmt.Errorf("failed to append row: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// OwnerDrawStats returns the owner's draw count and mean spread.
func (c *Client) OwnerDrawStats(ctx context.Context, owner string) (DrawStats, error) {
	query := `
		SELECT
			count() AS draws,
			ifNotFinite(avg(spread), 0) AS avg_spread
		FROM (
			SELECT draw_id, any(spread) AS spread
			FROM team_draws
			WHERE owner_id = $1
			GROUP BY draw_id
		)
	`

	var stats DrawStats
	if err := c.conn.QueryRow(ctx, query, owner).Scan(&stats.Draws, &stats.AvgSpread); err != nil {
		return DrawStats{}, err
	}
	return stats, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

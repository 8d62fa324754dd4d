package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// PostgresDAL implements RosterDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG default max_connections is 100
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute) // recycle connections across failovers
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Retry the first ping while cluster DNS settles
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		seq BIGSERIAL,
		owner_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		attr1 SMALLINT NOT NULL,
		attr2 SMALLINT NOT NULL,
		attr3 SMALLINT NOT NULL,
		attr4 SMALLINT NOT NULL,
		attr5 SMALLINT NOT NULL,
		attr6 SMALLINT NOT NULL,
		rating SMALLINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner_id, id)
	);

	CREATE TABLE IF NOT EXISTS selections (
		owner_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		PRIMARY KEY (owner_id, player_id),
		FOREIGN KEY (owner_id, player_id) REFERENCES players(owner_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_players_owner_seq ON players(owner_id, seq);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	// Ratings were not range checked in the first schema (migration)
	_, err := p.db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'players_rating_range') THEN
				ALTER TABLE players ADD CONSTRAINT players_rating_range CHECK (rating BETWEEN 1 AND 99);
			END IF;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("failed to add rating constraint: %w", err)
	}

	return nil
}

const pgPlayerColumns = `id, name, position, image, attr1, attr2, attr3, attr4, attr5, attr6, rating`

func (p *PostgresDAL) ListPlayers(ctx context.Context, owner string) ([]models.Player, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+pgPlayerColumns+`
		FROM players
		WHERE owner_id = $1
		ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		pl, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, pl)
	}
	return players, rows.Err()
}

func (p *PostgresDAL) GetPlayer(ctx context.Context, owner, id string) (*models.Player, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+pgPlayerColumns+`
		FROM players
		WHERE owner_id = $1 AND id = $2
	`, owner, id)
	pl, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &pl, nil
}

func (p *PostgresDAL) SavePlayer(ctx context.Context, owner string, player *models.Player) (*models.Player, error) {
	pl, err := preparePlayer(owner, player)
	if err != nil {
		return nil, err
	}

	a := pl.Attributes
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO players (owner_id, id, name, position, image, attr1, attr2, attr3, attr4, attr5, attr6, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			image = EXCLUDED.image,
			attr1 = EXCLUDED.attr1,
			attr2 = EXCLUDED.attr2,
			attr3 = EXCLUDED.attr3,
			attr4 = EXCLUDED.attr4,
			attr5 = EXCLUDED.attr5,
			attr6 = EXCLUDED.attr6,
			rating = EXCLUDED.rating,
			updated_at = CURRENT_TIMESTAMP
	`, owner, pl.ID, pl.Name, string(pl.Position), pl.Image,
		a.Attr1, a.Attr2, a.Attr3, a.Attr4, a.Attr5, a.Attr6, pl.Rating)
	if err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}
	return &pl, nil
}

// DeletePlayer removes the player; the selection row goes with it through
// ON DELETE CASCADE.
func (p *PostgresDAL) DeletePlayer(ctx context.Context, owner, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM players WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (p *PostgresDAL) GetSelection(ctx context.Context, owner string) ([]string, error) {
	var ids pq.StringArray
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(array_agg(s.player_id ORDER BY pl.seq), '{}')
		FROM selections s
		JOIN players pl ON pl.owner_id = s.owner_id AND pl.id = s.player_id
		WHERE s.owner_id = $1
	`, owner).Scan(&ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return []string(ids), nil
}

func (p *PostgresDAL) SetSelection(ctx context.Context, owner string, ids []string) ([]string, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE owner_id = $1`, owner); err != nil {
		return nil, fmt.Errorf("failed to reset selection: %w", err)
	}
	// Unknown ids are dropped by the join against the roster
	_, err = tx.ExecContext(ctx, `
		INSERT INTO selections (owner_id, player_id)
		SELECT owner_id, id FROM players
		WHERE owner_id = $1 AND id = ANY($2)
		ON CONFLICT DO NOTHING
	`, owner, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to store selection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p.GetSelection(ctx, owner)
}

func (p *PostgresDAL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDAL) Close() error {
	return p.db.Close()
}

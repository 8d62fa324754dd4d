package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// SQLiteDAL implements RosterDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		owner_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		attr1 INTEGER NOT NULL,
		attr2 INTEGER NOT NULL,
		attr3 INTEGER NOT NULL,
		attr4 INTEGER NOT NULL,
		attr5 INTEGER NOT NULL,
		attr6 INTEGER NOT NULL,
		rating INTEGER NOT NULL,
		PRIMARY KEY (owner_id, id)
	);

	CREATE TABLE IF NOT EXISTS selections (
		owner_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		PRIMARY KEY (owner_id, player_id),
		FOREIGN KEY (owner_id, player_id) REFERENCES players(owner_id, id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

const sqlitePlayerColumns = `id, name, position, image, attr1, attr2, attr3, attr4, attr5, attr6, rating`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (models.Player, error) {
	var p models.Player
	var pos string
	err := row.Scan(&p.ID, &p.Name, &pos, &p.Image,
		&p.Attributes.Attr1, &p.Attributes.Attr2, &p.Attributes.Attr3,
		&p.Attributes.Attr4, &p.Attributes.Attr5, &p.Attributes.Attr6, &p.Rating)
	p.Position = models.Position(pos)
	return p, err
}

func (s *SQLiteDAL) ListPlayers(ctx context.Context, owner string) ([]models.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlitePlayerColumns+`
		FROM players
		WHERE owner_id = ?
		ORDER BY rowid
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteDAL) GetPlayer(ctx context.Context, owner, id string) (*models.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqlitePlayerColumns+`
		FROM players
		WHERE owner_id = ? AND id = ?
	`, owner, id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *SQLiteDAL) SavePlayer(ctx context.Context, owner string, player *models.Player) (*models.Player, error) {
	p, err := preparePlayer(owner, player)
	if err != nil {
		return nil, err
	}

	a := p.Attributes
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players (owner_id, id, name, position, image, attr1, attr2, attr3, attr4, attr5, attr6, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			image = excluded.image,
			attr1 = excluded.attr1,
			attr2 = excluded.attr2,
			attr3 = excluded.attr3,
			attr4 = excluded.attr4,
			attr5 = excluded.attr5,
			attr6 = excluded.attr6,
			rating = excluded.rating
	`, owner, p.ID, p.Name, string(p.Position), p.Image,
		a.Attr1, a.Attr2, a.Attr3, a.Attr4, a.Attr5, a.Attr6, p.Rating)
	if err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}
	return &p, nil
}

func (s *SQLiteDAL) DeletePlayer(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE owner_id = ? AND player_id = ?`, owner, id); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM players WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return tx.Commit()
}

func (s *SQLiteDAL) GetSelection(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.player_id
		FROM selections s
		JOIN players p ON p.owner_id = s.owner_id AND p.id = s.player_id
		WHERE s.owner_id = ?
		ORDER BY p.rowid
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteDAL) SetSelection(ctx context.Context, owner string, ids []string) ([]string, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	roster, err := s.ListPlayers(ctx, owner)
	if err != nil {
		return nil, err
	}
	kept := filterSelection(roster, ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE owner_id = ?`, owner); err != nil {
		return nil, fmt.Errorf("failed to reset selection: %w", err)
	}
	for _, id := range kept {
		if _, err := tx.ExecContext(ctx, `INSERT INTO selections (owner_id, player_id) VALUES (?, ?)`, owner, id); err != nil {
			return nil, fmt.Errorf("failed to store selection: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return kept, nil
}

func (s *SQLiteDAL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}

package dal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// MaxNameLength bounds player names after trimming.
const MaxNameLength = 64

// RosterDAL defines the interface for the roster data access layer.
// Every method is scoped to one owner; owners never see each other's data.
type RosterDAL interface {
	ListPlayers(ctx context.Context, owner string) ([]models.Player, error)
	GetPlayer(ctx context.Context, owner, id string) (*models.Player, error)
	SavePlayer(ctx context.Context, owner string, player *models.Player) (*models.Player, error)
	DeletePlayer(ctx context.Context, owner, id string) error
	GetSelection(ctx context.Context, owner string) ([]string, error)
	SetSelection(ctx context.Context, owner string, ids []string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// preparePlayer validates and normalizes a player before it is written.
// It returns a copy; the caller's value is untouched.
func preparePlayer(owner string, in *models.Player) (models.Player, error) {
	if owner == "" {
		return models.Player{}, ErrNoOwner
	}
	if in == nil {
		return models.Player{}, fmt.Errorf("%w: nil player", ErrInvalidPlayer)
	}
	p := *in
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Player{}, fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}
	if len([]rune(p.Name)) > MaxNameLength {
		return models.Player{}, fmt.Errorf("%w: name longer than %d characters", ErrInvalidPlayer, MaxNameLength)
	}
	if p.Position == "" {
		p.Position = models.DefaultPosition
	}
	pos, err := models.ParsePosition(string(p.Position))
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: %v", ErrInvalidPlayer, err)
	}
	p.Position = pos
	if p.ID == "" {
		p.ID = NewID()
	}
	// Rating is always derived from the attributes.
	p.Rate()
	return p, nil
}

// NewID returns a time ordered player id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// filterSelection keeps ids present in roster, in roster order, without
// duplicates.
func filterSelection(roster []models.Player, ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, p := range roster {
		if want[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}

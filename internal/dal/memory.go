package dal

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

type ownerRoster struct {
	players   []models.Player // creation order
	selection []string
}

func (r *ownerRoster) index(id string) int {
	for i := range r.players {
		if r.players[i].ID == id {
			return i
		}
	}
	return -1
}

// MemoryDAL implements RosterDAL using in-memory storage
type MemoryDAL struct {
	mu     sync.RWMutex
	owners map[string]*ownerRoster
}

// NewMemoryDAL creates a new in-memory data access layer
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		owners: make(map[string]*ownerRoster),
	}
}

// roster returns the owner's roster, creating it when create is set.
// Callers must hold the lock.
func (m *MemoryDAL) roster(owner string, create bool) *ownerRoster {
	r, ok := m.owners[owner]
	if !ok && create {
		r = &ownerRoster{}
		m.owners[owner] = r
	}
	return r
}

func (m *MemoryDAL) ListPlayers(_ context.Context, owner string) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.roster(owner, false)
	if r == nil {
		return []models.Player{}, nil
	}

	// Copy to avoid races with writers
	out := make([]models.Player, len(r.players))
	copy(out, r.players)
	return out, nil
}

func (m *MemoryDAL) GetPlayer(_ context.Context, owner, id string) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.roster(owner, false)
	if r == nil {
		return nil, ErrPlayerNotFound
	}
	i := r.index(id)
	if i < 0 {
		return nil, ErrPlayerNotFound
	}
	p := r.players[i]
	return &p, nil
}

func (m *MemoryDAL) SavePlayer(_ context.Context, owner string, player *models.Player) (*models.Player, error) {
	p, err := preparePlayer(owner, player)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roster(owner, true)
	if i := r.index(p.ID); i >= 0 {
		r.players[i] = p
	} else {
		r.players = append(r.players, p)
	}
	return &p, nil
}

func (m *MemoryDAL) DeletePlayer(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roster(owner, false)
	if r == nil {
		return ErrPlayerNotFound
	}
	i := r.index(id)
	if i < 0 {
		return ErrPlayerNotFound
	}
	r.players = append(r.players[:i], r.players[i+1:]...)

	// A deleted player can no longer be selected
	kept := r.selection[:0]
	for _, sel := range r.selection {
		if sel != id {
			kept = append(kept, sel)
		}
	}
	r.selection = kept
	return nil
}

func (m *MemoryDAL) GetSelection(_ context.Context, owner string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.roster(owner, false)
	if r == nil {
		return []string{}, nil
	}
	out := make([]string, len(r.selection))
	copy(out, r.selection)
	return out, nil
}

func (m *MemoryDAL) SetSelection(_ context.Context, owner string, ids []string) ([]string, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roster(owner, true)
	r.selection = filterSelection(r.players, ids)

	out := make([]string, len(r.selection))
	copy(out, r.selection)
	return out, nil
}

func (m *MemoryDAL) Ping(context.Context) error {
	return nil
}

func (m *MemoryDAL) Close() error {
	return nil
}

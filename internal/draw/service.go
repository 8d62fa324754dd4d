// Package draw coordinates an owner's roster, selection and team draws.
//
// The Service sits between the transports and the roster store: writes go to
// the store, then an event is published so other tabs and replicas refresh.
// Draw results live only in memory, one current draw per owner.
package draw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Billy-Davies-2/futdraw/internal/blobstore"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/imaging"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/metrics"
	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
	"github.com/Billy-Davies-2/futdraw/internal/teams"
)

// DefaultMinSelection is the smallest selection Draw accepts by default.
const DefaultMinSelection = 3

// DefaultSessionLimit caps how many owners keep a current draw in memory.
// The least recently used draw is dropped first.
const DefaultSessionLimit = 10000

// Recorder receives completed draws for analytics.
type Recorder interface {
	RecordDraw(ctx context.Context, result *models.DrawResult) error
}

// Options for a single draw.
type Options struct {
	// Seed, when set, shuffles players of equal rating before balancing.
	Seed *int64
}

// Service is safe for concurrent use.
type Service struct {
	store         dal.RosterDAL
	pub           pubsub.Publisher
	recorder      Recorder
	images        blobstore.Store
	minSelection  int
	maxImageBytes int64
	now           func() time.Time
	sessionLimit  int

	mu       sync.Mutex
	sessions *lru.Cache // owner -> *models.DrawResult
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where roster, selection and draw events are sent.
func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithRecorder sets the analytics sink for completed draws.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMinSelection overrides DefaultMinSelection. Values below 1 are ignored.
func WithMinSelection(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.minSelection = n
		}
	}
}

// WithImageStore enables player photos, capped at maxBytes per upload.
func WithImageStore(store blobstore.Store, maxBytes int64) Option {
	return func(s *Service) {
		s.images = store
		s.maxImageBytes = maxBytes
	}
}

// WithSessionLimit overrides DefaultSessionLimit. Values below 1 are ignored.
func WithSessionLimit(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.sessionLimit = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store dal.RosterDAL, opts ...Option) *Service {
	s := &Service{
		store:         store,
		minSelection:  DefaultMinSelection,
		maxImageBytes: imaging.DefaultMaxBytes,
		now:           time.Now,
		sessionLimit:  DefaultSessionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Only fails for a non-positive size, which the option guards against.
	s.sessions, _ = lru.New(s.sessionLimit)
	return s
}

// MinSelection is the smallest selection Draw accepts.
func (s *Service) MinSelection() int {
	return s.minSelection
}

func (s *Service) publish(eventType, owner string, payload map[string]interface{}) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(pubsub.Event{Type: eventType, Owner: owner, Payload: payload})
}

// Players returns the owner's roster in creation order.
func (s *Service) Players(ctx context.Context, owner string) ([]models.Player, error) {
	return s.store.ListPlayers(ctx, owner)
}

// Player returns one card.
func (s *Service) Player(ctx context.Context, owner, id string) (*models.Player, error) {
	return s.store.GetPlayer(ctx, owner, id)
}

// SavePlayer creates or updates a card.
func (s *Service) SavePlayer(ctx context.Context, owner string, p *models.Player) (*models.Player, error) {
	saved, err := s.store.SavePlayer(ctx, owner, p)
	if err != nil {
		return nil, err
	}
	metrics.RecordRosterWrite("save")
	s.publish(pubsub.EventPlayerSaved, owner, map[string]interface{}{"player": saved})
	return saved, nil
}

// DeletePlayer removes a card, its photo and its selection entry.
func (s *Service) DeletePlayer(ctx context.Context, owner, id string) error {
	existing, err := s.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlayer(ctx, owner, id); err != nil {
		return err
	}
	metrics.RecordRosterWrite("delete")

	if existing.Image != "" && s.images != nil {
		err := s.images.Delete(ctx, blobstore.ImageKey(owner, id))
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			logger.Warn("Failed to delete player image", "owner", owner, "player", id, "error", err)
		}
	}
	s.publish(pubsub.EventPlayerDeleted, owner, map[string]interface{}{"id": id})
	return nil
}

// ImagePath is the public URL path of a stored card image.
func ImagePath(owner, id string) string {
	return "/images/" + blobstore.ImageKey(owner, id)
}

// SetPlayerImage normalizes a photo into a card image, stores it and points
// the player at it.
func (s *Service) SetPlayerImage(ctx context.Context, owner, id string, photo io.Reader) (*models.Player, error) {
	if s.images == nil {
		return nil, ErrNoImageStore
	}
	p, err := s.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	card, err := imaging.Normalize(photo, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	if err := s.images.Put(ctx, blobstore.ImageKey(owner, id), card, "image/png"); err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}
	metrics.RecordRosterWrite("image")
	p.Image = ImagePath(owner, id)
	return s.SavePlayer(ctx, owner, p)
}

// Image returns a stored card image.
func (s *Service) Image(ctx context.Context, owner, id string) ([]byte, error) {
	if s.images == nil {
		return nil, blobstore.ErrNotFound
	}
	return s.images.Get(ctx, blobstore.ImageKey(owner, id))
}

// Selection returns the selected ids in roster order.
func (s *Service) Selection(ctx context.Context, owner string) ([]string, error) {
	return s.store.GetSelection(ctx, owner)
}

// SetSelection replaces the selection; unknown ids are dropped.
func (s *Service) SetSelection(ctx context.Context, owner string, ids []string) ([]string, error) {
	kept, err := s.store.SetSelection(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	s.publish(pubsub.EventSelectionUpdated, owner, map[string]interface{}{"playerIds": kept})
	return kept, nil
}

// Toggle selects id if it is unselected and unselects it otherwise.
func (s *Service) Toggle(ctx context.Context, owner, id string) ([]string, error) {
	if _, err := s.store.GetPlayer(ctx, owner, id); err != nil {
		return nil, err
	}
	current, err := s.store.GetSelection(ctx, owner)
	if err != nil {
		return nil, err
	}
	sel := models.Selection{Owner: owner, PlayerIDs: current}

	next := make([]string, 0, len(current)+1)
	if sel.Contains(id) {
		for _, cur := range current {
			if cur != id {
				next = append(next, cur)
			}
		}
	} else {
		next = append(append(next, current...), id)
	}
	return s.SetSelection(ctx, owner, next)
}

// SelectAll selects the whole roster, or clears the selection when every
// player is already selected.
func (s *Service) SelectAll(ctx context.Context, owner string) ([]string, error) {
	roster, err := s.store.ListPlayers(ctx, owner)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetSelection(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(roster) > 0 && len(current) == len(roster) {
		return s.SetSelection(ctx, owner, nil)
	}

	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}
	return s.SetSelection(ctx, owner, ids)
}

// Clear empties the selection.
func (s *Service) Clear(ctx context.Context, owner string) error {
	_, err := s.SetSelection(ctx, owner, nil)
	return err
}

// Draw balances the owner's selected players into three teams and makes the
// result the owner's current draw.
func (s *Service) Draw(ctx context.Context, owner string, opts Options) (*models.DrawResult, error) {
	return s.draw(ctx, owner, "draw", opts)
}

// Redraw runs the draw again on the current selection. An unchanged
// selection without a seed yields the same teams as the previous draw.
func (s *Service) Redraw(ctx context.Context, owner string, opts Options) (*models.DrawResult, error) {
	return s.draw(ctx, owner, "redraw", opts)
}

func (s *Service) draw(ctx context.Context, owner, kind string, opts Options) (*models.DrawResult, error) {
	selected, err := s.selectedPlayers(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(selected) < s.minSelection {
		metrics.RecordDrawRejected()
		return nil, fmt.Errorf("%w: %d selected, need at least %d", ErrNotEnoughPlayers, len(selected), s.minSelection)
	}

	var balanceOpts []teams.Option
	if opts.Seed != nil {
		balanceOpts = append(balanceOpts, teams.WithTieShuffle(*opts.Seed))
	}
	result := &models.DrawResult{
		ID:          dal.NewID(),
		Owner:       owner,
		CreatedAt:   s.now().UTC(),
		PlayerCount: len(selected),
		Seed:        opts.Seed,
		Teams:       teams.Balance(selected, balanceOpts...),
	}
	result.Spread = teams.Spread(result.Teams)

	s.mu.Lock()
	s.sessions.Add(owner, result)
	s.mu.Unlock()

	metrics.RecordDraw(kind, result.PlayerCount, result.Spread)
	logger.Info("Teams drawn", "owner", owner, "draw", result.ID, "players", result.PlayerCount, "spread", result.Spread)

	if s.recorder != nil {
		if err := s.recorder.RecordDraw(ctx, result); err != nil {
			logger.Warn("Failed to record draw", "draw", result.ID, "error", err)
		}
	}
	s.publish(pubsub.EventDrawComplete, owner, map[string]interface{}{"draw": result})
	return result, nil
}

// selectedPlayers returns the selected players in roster order.
func (s *Service) selectedPlayers(ctx context.Context, owner string) ([]models.Player, error) {
	roster, err := s.store.ListPlayers(ctx, owner)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.GetSelection(ctx, owner)
	if err != nil {
		return nil, err
	}
	sel := models.Selection{Owner: owner, PlayerIDs: ids}

	selected := make([]models.Player, 0, len(ids))
	for _, p := range roster {
		if sel.Contains(p.ID) {
			selected = append(selected, p)
		}
	}
	return selected, nil
}

// Current returns the owner's current draw.
func (s *Service) Current(_ context.Context, owner string) (*models.DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions.Get(owner)
	if !ok {
		return nil, ErrNoDraw
	}
	return v.(*models.DrawResult), nil
}

// Dismiss ends the owner's current draw.
func (s *Service) Dismiss(_ context.Context, owner string) error {
	s.mu.Lock()
	ok := s.sessions.Remove(owner)
	s.mu.Unlock()
	if !ok {
		return ErrNoDraw
	}
	s.publish(pubsub.EventDrawDismissed, owner, nil)
	return nil
}

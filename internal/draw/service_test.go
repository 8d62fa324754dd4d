package draw

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/futdraw/internal/blobstore"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/imaging"
	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []pubsub.Event
}

func (c *capturePublisher) Publish(e pubsub.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

type captureRecorder struct {
	results []*models.DrawResult
	err     error
}

func (c *captureRecorder) RecordDraw(_ context.Context, r *models.DrawResult) error {
	c.results = append(c.results, r)
	return c.err
}

const owner = "owner-1"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *capturePublisher, *captureRecorder) {
	t.Helper()
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	opts = append([]Option{
		WithPublisher(pub),
		WithRecorder(rec),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewService(dal.NewMemoryDAL(), opts...), pub, rec
}

func addPlayers(t *testing.T, s *Service, ratings ...int) []models.Player {
	t.Helper()
	var out []models.Player
	for i, r := range ratings {
		p, err := s.SavePlayer(context.Background(), owner, &models.Player{
			Name:     string(rune('A' + i)),
			Position: models.PositionCM,
			Attributes: models.Attributes{
				Attr1: r, Attr2: r, Attr3: r, Attr4: r, Attr5: r, Attr6: r,
			},
		})
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}

func ids(players []models.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestService(t)
	players := addPlayers(t, s, 80, 70)

	sel, err := s.Toggle(ctx, owner, players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{players[1].ID}, sel)

	sel, err = s.Toggle(ctx, owner, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ids(players), sel, "selection follows roster order")

	sel, err = s.Toggle(ctx, owner, players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{players[0].ID}, sel)

	_, err = s.Toggle(ctx, owner, "missing")
	assert.True(t, errors.Is(err, dal.ErrPlayerNotFound))

	assert.Contains(t, pub.types(), pubsub.EventSelectionUpdated)
}

func TestSelectAllTogglesWholeRoster(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	players := addPlayers(t, s, 80, 70, 60)

	sel, err := s.SelectAll(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, ids(players), sel)

	sel, err = s.SelectAll(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, sel)

	// A partial selection selects everything.
	_, err = s.Toggle(ctx, owner, players[2].ID)
	require.NoError(t, err)
	sel, err = s.SelectAll(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, ids(players), sel)

	require.NoError(t, s.Clear(ctx, owner))
	sel, err = s.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, sel)
}

func TestSelectAllOnEmptyRoster(t *testing.T) {
	s, _, _ := newTestService(t)
	sel, err := s.SelectAll(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, sel)
}

func TestDrawRequiresMinimumSelection(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestService(t)
	players := addPlayers(t, s, 80, 70, 60)

	_, err := s.SetSelection(ctx, owner, ids(players[:2]))
	require.NoError(t, err)

	_, err = s.Draw(ctx, owner, Options{})
	assert.True(t, errors.Is(err, ErrNotEnoughPlayers), "got %v", err)
	assert.Empty(t, rec.results)

	_, err = s.Current(ctx, owner)
	assert.True(t, errors.Is(err, ErrNoDraw))
}

func TestDrawBalancesSelectedPlayers(t *testing.T) {
	ctx := context.Background()
	s, pub, rec := newTestService(t)
	players := addPlayers(t, s, 90, 85, 80, 75, 70, 65, 60, 99)

	// Everyone but the 99.
	_, err := s.SetSelection(ctx, owner, ids(players[:7]))
	require.NoError(t, err)

	result, err := s.Draw(ctx, owner, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, owner, result.Owner)
	assert.Equal(t, fixedNow, result.CreatedAt)
	assert.Equal(t, 7, result.PlayerCount)
	assert.Nil(t, result.Seed)

	assert.Equal(t, "Team A", result.Teams[0].Name)
	assert.Equal(t, 215, result.Teams[0].Total)
	assert.Equal(t, 72, result.Teams[0].Average)
	assert.Equal(t, 155, result.Teams[1].Total)
	assert.Equal(t, 155, result.Teams[2].Total)
	assert.Equal(t, 60, result.Spread)

	current, err := s.Current(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, result, current)

	require.Len(t, rec.results, 1)
	assert.Equal(t, result.ID, rec.results[0].ID)
	assert.Contains(t, pub.types(), pubsub.EventDrawComplete)
}

func TestDrawSurvivesRecorderFailure(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestService(t)
	rec.err = errors.New("clickhouse down")
	players := addPlayers(t, s, 70, 70, 70)
	_, err := s.SetSelection(ctx, owner, ids(players))
	require.NoError(t, err)

	_, err = s.Draw(ctx, owner, Options{})
	assert.NoError(t, err)
}

func TestRedrawRepeatsDrawWithoutSeed(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	players := addPlayers(t, s, 70, 70, 70, 70, 70, 70, 70, 70, 70)
	_, err := s.SelectAll(ctx, owner)
	require.NoError(t, err)

	first, err := s.Draw(ctx, owner, Options{})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := s.Redraw(ctx, owner, Options{})
		require.NoError(t, err)
		assert.Nil(t, again.Seed)
		assert.Equal(t, len(players), again.PlayerCount)
		require.Equal(t, first.Teams, again.Teams, "redraw %d", i)
	}

	seed := int64(42)
	a, err := s.Redraw(ctx, owner, Options{Seed: &seed})
	require.NoError(t, err)
	b, err := s.Draw(ctx, owner, Options{Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, a.Teams, b.Teams)
	require.NotNil(t, a.Seed)
	assert.Equal(t, seed, *a.Seed)
}

func TestSessionLimitEvictsOldestDraw(t *testing.T) {
	ctx := context.Background()
	s := NewService(dal.NewMemoryDAL(), WithMinSelection(1), WithSessionLimit(2))

	for _, o := range []string{"a", "b", "c"} {
		_, err := s.SavePlayer(ctx, o, &models.Player{Name: "P", Position: models.PositionST})
		require.NoError(t, err)
		_, err = s.SelectAll(ctx, o)
		require.NoError(t, err)
		_, err = s.Draw(ctx, o, Options{})
		require.NoError(t, err)
	}

	_, err := s.Current(ctx, "a")
	assert.True(t, errors.Is(err, ErrNoDraw))
	for _, o := range []string{"b", "c"} {
		_, err := s.Current(ctx, o)
		assert.NoError(t, err, o)
	}
	assert.True(t, errors.Is(s.Dismiss(ctx, "a"), ErrNoDraw))
}

func TestDismiss(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestService(t)
	players := addPlayers(t, s, 80, 70, 60)
	_, err := s.SetSelection(ctx, owner, ids(players))
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Dismiss(ctx, owner), ErrNoDraw))

	_, err = s.Draw(ctx, owner, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Dismiss(ctx, owner))

	_, err = s.Current(ctx, owner)
	assert.True(t, errors.Is(err, ErrNoDraw))
	assert.Contains(t, pub.types(), pubsub.EventDrawDismissed)
}

func TestMinSelectionOption(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t, WithMinSelection(1))
	assert.Equal(t, 1, s.MinSelection())

	players := addPlayers(t, s, 80)
	_, err := s.SetSelection(ctx, owner, ids(players))
	require.NoError(t, err)

	result, err := s.Draw(ctx, owner, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Teams[0].Members, 1)
	assert.Empty(t, result.Teams[1].Members)
	assert.Equal(t, 0, result.Teams[1].Average)

	assert.Equal(t, 1, NewService(dal.NewMemoryDAL(), WithMinSelection(1), WithMinSelection(0)).MinSelection())
}

func TestDeletePlayerClearsSelectionAndImage(t *testing.T) {
	ctx := context.Background()
	images := blobstore.NewMemory()
	s, pub, _ := newTestService(t, WithImageStore(images, imaging.DefaultMaxBytes))
	players := addPlayers(t, s, 80, 70)
	_, err := s.SelectAll(ctx, owner)
	require.NoError(t, err)

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 60, 80))
	img.Set(1, 1, color.White)
	require.NoError(t, png.Encode(&buf, img))

	p, err := s.SetPlayerImage(ctx, owner, players[0].ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, ImagePath(owner, players[0].ID), p.Image)

	data, err := s.Image(ctx, owner, players[0].ID)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imaging.CardWidth, cfg.Width)

	require.NoError(t, s.DeletePlayer(ctx, owner, players[0].ID))

	sel, err := s.Selection(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{players[1].ID}, sel)

	_, err = s.Image(ctx, owner, players[0].ID)
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))
	assert.Contains(t, pub.types(), pubsub.EventPlayerDeleted)

	assert.True(t, errors.Is(s.DeletePlayer(ctx, owner, "missing"), dal.ErrPlayerNotFound))
}

func TestSetPlayerImageWithoutStore(t *testing.T) {
	s, _, _ := newTestService(t)
	players := addPlayers(t, s, 80)
	_, err := s.SetPlayerImage(context.Background(), owner, players[0].ID, bytes.NewReader(nil))
	assert.True(t, errors.Is(err, ErrNoImageStore))
}

func TestSetPlayerImageRejectsGarbage(t *testing.T) {
	s, _, _ := newTestService(t, WithImageStore(blobstore.NewMemory(), 1024))
	players := addPlayers(t, s, 80)
	_, err := s.SetPlayerImage(context.Background(), owner, players[0].ID, bytes.NewReader([]byte("nope")))
	assert.True(t, errors.Is(err, imaging.ErrUnsupportedImage))
}

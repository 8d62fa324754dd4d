package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"

	"github.com/Billy-Davies-2/futdraw/internal/blobstore"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/metrics"
	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
)

// ImageCache keeps recently served card images in memory in front of the
// blob store. A nil *ImageCache is valid and caches nothing.
type ImageCache struct {
	cache *lru.Cache
}

// NewImageCache creates a cache holding up to size images.
func NewImageCache(size int) (*ImageCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ImageCache{cache: cache}, nil
}

func (c *ImageCache) get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	metrics.RecordImageCache(ok)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *ImageCache) add(key string, data []byte) {
	if c != nil {
		c.cache.Add(key, data)
	}
}

// Invalidate drops a player's cached image.
func (c *ImageCache) Invalidate(owner, playerID string) {
	if c != nil {
		c.cache.Remove(blobstore.ImageKey(owner, playerID))
	}
}

// Len is the number of cached images.
func (c *ImageCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// Watch invalidates entries when any replica saves or deletes a player,
// until ctx is done.
func (c *ImageCache) Watch(ctx context.Context, ps *pubsub.PubSub) {
	if c == nil || ps == nil {
		return
	}
	events := ps.Subscribe()
	defer ps.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if id := eventPlayerID(ev); id != "" {
				c.Invalidate(ev.Owner, id)
			}
		}
	}
}

// eventPlayerID extracts the player id from roster events. Payloads that
// crossed NATS are decoded maps, local ones hold the original values.
func eventPlayerID(ev pubsub.Event) string {
	switch ev.Type {
	case pubsub.EventPlayerDeleted:
		id, _ := ev.Payload["id"].(string)
		return id
	case pubsub.EventPlayerSaved:
		switch p := ev.Payload["player"].(type) {
		case map[string]interface{}:
			id, _ := p["id"].(string)
			return id
		case *models.Player:
			return p.ID
		}
	}
	return ""
}

// ServeImage serves /images/{owner}/{file}. Owners only see their own images.
func (h *APIHandlers) ServeImage(w http.ResponseWriter, r *http.Request) {
	imageOwner := chi.URLParam(r, "owner")
	id, ok := imageFile(chi.URLParam(r, "file"))
	if !ok || imageOwner != owner(r) {
		writeError(w, r, blobstore.ErrNotFound)
		return
	}

	key := blobstore.ImageKey(imageOwner, id)
	data, hit := h.images.get(key)
	if !hit {
		var err error
		if data, err = h.svc.Image(r.Context(), imageOwner, id); err != nil {
			writeError(w, r, err)
			return
		}
		h.images.add(key, data)
		logger.Debug("Loaded card image", "key", key, "size", humanize.Bytes(uint64(len(data))))
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/clickhouse"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	"github.com/Billy-Davies-2/futdraw/internal/imaging"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// APIHandlers contains all API handler methods
type APIHandlers struct {
	svc           *draw.Service
	pubsub        *pubsub.PubSub
	analytics     clickhouse.Analytics
	images        *ImageCache
	maxImageBytes int64
	formDecoder   *schema.Decoder
}

// NewAPIHandlers creates a new API handlers instance. analytics and images
// may be nil.
func NewAPIHandlers(svc *draw.Service, ps *pubsub.PubSub, analytics clickhouse.Analytics, images *ImageCache, maxImageBytes int64) *APIHandlers {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)

	return &APIHandlers{
		svc:           svc,
		pubsub:        ps,
		analytics:     analytics,
		images:        images,
		maxImageBytes: maxImageBytes,
		formDecoder:   dec,
	}
}

// owner is the roster owner of an authenticated request.
func owner(r *http.Request) string {
	if user := auth.GetUser(r); user != nil {
		return user.ID
	}
	return ""
}

func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// Me returns the signed-in user.
func (h *APIHandlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.GetUser(r))
}

// ListPlayers returns the roster in creation order.
func (h *APIHandlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.svc.Players(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// GetPlayer returns one card.
func (h *APIHandlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Player(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePlayer upserts a card from a JSON body. A missing id creates a new card.
func (h *APIHandlers) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var player models.Player
	if err := decodeJSON(r, &player, false); err != nil {
		logger.Warn("Failed to decode player", "error", err)
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if player.ID != "" {
		if _, err := h.svc.Player(r.Context(), owner(r), player.ID); err == nil {
			status = http.StatusOK
		}
	}
	saved, err := h.svc.SavePlayer(r.Context(), owner(r), &player)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("Player saved", "owner", owner(r), "player_id", saved.ID, "rating", saved.Rating)
	writeJSON(w, status, saved)
}

// UpdatePlayer replaces an existing card.
func (h *APIHandlers) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.svc.Player(r.Context(), owner(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var player models.Player
	if err := decodeJSON(r, &player, false); err != nil {
		writeError(w, r, err)
		return
	}
	player.ID = id
	if player.Image == "" {
		player.Image = existing.Image
	}

	saved, err := h.svc.SavePlayer(r.Context(), owner(r), &player)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeletePlayer removes a card.
func (h *APIHandlers) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeletePlayer(r.Context(), owner(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.images.Invalidate(owner(r), id)
	logger.Info("Player deleted", "owner", owner(r), "player_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage attaches a photo (multipart field "image") to a card.
func (h *APIHandlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+maxJSONBody)

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, h.formError(err))
		return
	}
	defer file.Close()

	p, err := h.svc.SetPlayerImage(r.Context(), owner(r), id, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.images.Invalidate(owner(r), id)
	writeJSON(w, http.StatusOK, p)
}

// playerForm is the card editor submitted as multipart/form-data.
type playerForm struct {
	ID       string `schema:"id"`
	Name     string `schema:"name"`
	Position string `schema:"position"`
	Attr1    int    `schema:"attr1"`
	Attr2    int    `schema:"attr2"`
	Attr3    int    `schema:"attr3"`
	Attr4    int    `schema:"attr4"`
	Attr5    int    `schema:"attr5"`
	Attr6    int    `schema:"attr6"`
}

func (f playerForm) player() *models.Player {
	return &models.Player{
		ID:       f.ID,
		Name:     f.Name,
		Position: models.Position(f.Position),
		Attributes: models.Attributes{
			Attr1: f.Attr1, Attr2: f.Attr2, Attr3: f.Attr3,
			Attr4: f.Attr4, Attr5: f.Attr5, Attr6: f.Attr6,
		},
	}
}

// SubmitPlayerForm saves a card from the editor form, with an optional photo.
// Attributes left out of the form keep the new-card default.
func (h *APIHandlers) SubmitPlayerForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+maxJSONBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		writeError(w, r, h.formError(err))
		return
	}

	def := models.DefaultAttributes()
	form := playerForm{
		Attr1: def.Attr1, Attr2: def.Attr2, Attr3: def.Attr3,
		Attr4: def.Attr4, Attr5: def.Attr5, Attr6: def.Attr6,
	}
	if err := h.formDecoder.Decode(&form, r.MultipartForm.Value); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	player := form.player()
	if existing, err := h.svc.Player(r.Context(), owner(r), form.ID); err == nil {
		player.Image = existing.Image
	}
	saved, err := h.svc.SavePlayer(r.Context(), owner(r), player)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if saved, err = h.svc.SetPlayerImage(r.Context(), owner(r), saved.ID, file); err != nil {
			writeError(w, r, err)
			return
		}
		h.images.Invalidate(owner(r), saved.ID)
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, r, h.formError(err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *APIHandlers) formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: upload larger than %d bytes", imaging.ErrImageTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// Labels returns the attribute labels for ?position= (outfield by default)
// and the list of positions.
func (h *APIHandlers) Labels(w http.ResponseWriter, r *http.Request) {
	pos := models.DefaultPosition
	if q := r.URL.Query().Get("position"); q != "" {
		parsed, err := models.ParsePosition(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		pos = parsed
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"position":  pos,
		"labels":    models.Labels(pos),
		"positions": models.Positions,
	})
}

type selectionRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

// selectionResponse tells clients whether the draw button should be enabled.
type selectionResponse struct {
	PlayerIDs    []string `json:"playerIds"`
	MinSelection int      `json:"minSelection"`
	CanDraw      bool     `json:"canDraw"`
}

func (h *APIHandlers) writeSelection(w http.ResponseWriter, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	need := h.svc.MinSelection()
	writeJSON(w, http.StatusOK, selectionResponse{PlayerIDs: ids, MinSelection: need, CanDraw: len(ids) >= need})
}

// GetSelection returns the selected ids in roster order.
func (h *APIHandlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Selection(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSelection(w, ids)
}

// SetSelection replaces the selection from {"playerIds": [...]}.
func (h *APIHandlers) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := h.svc.SetSelection(r.Context(), owner(r), req.PlayerIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSelection(w, ids)
}

// ToggleSelection flips one player's selection.
func (h *APIHandlers) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Toggle(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSelection(w, ids)
}

// SelectAll selects every player, or none when all are selected.
func (h *APIHandlers) SelectAll(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.SelectAll(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSelection(w, ids)
}

// ClearSelection empties the selection.
func (h *APIHandlers) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), owner(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSelection(w, nil)
}

type drawRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// Draw balances the selection into three teams. The body is optional.
func (h *APIHandlers) Draw(w http.ResponseWriter, r *http.Request) {
	h.runDraw(w, r, h.svc.Draw)
}

// Redraw runs the draw again on the current selection.
func (h *APIHandlers) Redraw(w http.ResponseWriter, r *http.Request) {
	h.runDraw(w, r, h.svc.Redraw)
}

func (h *APIHandlers) runDraw(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, owner string, opts draw.Options) (*models.DrawResult, error)) {

	var req drawRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := run(r.Context(), owner(r), draw.Options{Seed: req.Seed})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CurrentDraw returns the current draw.
func (h *APIHandlers) CurrentDraw(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Current(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DismissDraw closes the current draw.
func (h *APIHandlers) DismissDraw(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Dismiss(r.Context(), owner(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the owner's draw analytics.
func (h *APIHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		writeJSON(w, http.StatusOK, clickhouse.DrawStats{})
		return
	}
	stats, err := h.analytics.OwnerDrawStats(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// imageFile splits "{id}.png".
func imageFile(name string) (string, bool) {
	id := strings.TrimSuffix(name, ".png")
	return id, id != "" && id != name && !strings.ContainsAny(id, "/\\")
}

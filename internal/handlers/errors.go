package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Billy-Davies-2/futdraw/internal/blobstore"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	"github.com/Billy-Davies-2/futdraw/internal/imaging"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps service errors to HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, dal.ErrInvalidPlayer),
		errors.Is(err, dal.ErrNoOwner),
		errors.Is(err, models.ErrUnknownPosition):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, dal.ErrPlayerNotFound),
		errors.Is(err, draw.ErrNoDraw),
		errors.Is(err, blobstore.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, draw.ErrNotEnoughPlayers):
		return http.StatusConflict, "not_enough_players"
	case errors.Is(err, imaging.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, imaging.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, "unsupported_image"
	case errors.Is(err, draw.ErrNoImageStore):
		return http.StatusNotImplemented, "images_disabled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		msg = "internal server error"
	} else {
		logger.Debug("Request rejected", "error", err, "status", status, "path", r.URL.Path)
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

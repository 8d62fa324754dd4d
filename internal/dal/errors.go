package dal

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidPlayer  = errors.New("invalid player")
	ErrNoOwner        = errors.New("owner is required")
)

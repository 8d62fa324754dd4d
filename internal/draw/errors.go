package draw

import "errors"

var (
	// ErrNotEnoughPlayers is returned when fewer than the minimum number of
	// players are selected for a draw.
	ErrNotEnoughPlayers = errors.New("not enough players selected")
	// ErrNoDraw is returned when an owner has no current draw.
	ErrNoDraw = errors.New("no draw in progress")
	// ErrNoImageStore is returned by SetPlayerImage when images are disabled.
	ErrNoImageStore = errors.New("image storage is not configured")
)

package location

import (
	"context"
	"errors"

	"github.com/example/courier-client/internal/models"
)

// ErrPermissionDenied mirrors the device permission gate: the user declined
// location access. Recoverable; callers show an actionable message.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrUnavailable means the provider could not produce a fix in time.
var ErrUnavailable = errors.New("location unavailable")

// Provider supplies the requester's current coordinates behind a permission
// gate.
type Provider interface {
	Current(ctx context.Context) (models.Coord, error)
}

// Static serves a fixed coordinate from configuration; the usual provider
// for a headless agent pinned to a store or depot.
type Static struct {
	Coord   models.Coord
	Granted bool
}

func (s *Static) Current(ctx context.Context) (models.Coord, error) {
	if !s.Granted {
		return models.Coord{}, ErrPermissionDenied
	}
	if s.Coord.Lat == 0 && s.Coord.Lng == 0 {
		return models.Coord{}, ErrUnavailable
	}
	return s.Coord, nil
}

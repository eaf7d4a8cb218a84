// Package favorites tracks the user's favorite live streams and notifies
// listeners whenever one is toggled.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/tvee/internal/events"
	"github.com/jmylchreest/tvee/internal/repository"
)

// Change is broadcast after every toggle.
type Change struct {
	StreamID int  `json:"stream_id"`
	Favorite bool `json:"favorite"`
}

// Store is the favorites service.
type Store struct {
	repo   repository.FavoriteRepository
	bus    *events.Bus[Change]
	logger *slog.Logger

	// Serializes toggles so the read-then-write pair is atomic.
	mu sync.Mutex
}

// NewStore creates a Store backed by repo. A nil logger uses slog.Default.
func NewStore(repo repository.FavoriteRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		bus:    events.NewBus[Change]("favorites", logger),
		logger: logger.With(slog.String("component", "favorites")),
	}
}

// IsFavorite reports whether streamID is a favorite.
func (s *Store) IsFavorite(ctx context.Context, streamID int) (bool, error) {
	ok, err := s.repo.Exists(ctx, streamID)
	if err != nil {
		return false, fmt.Errorf("checking favorite %d: %w", streamID, err)
	}
	return ok, nil
}

// Toggle flips the favorite flag for streamID and returns the new value.
func (s *Store) Toggle(ctx context.Context, streamID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.IsFavorite(ctx, streamID)
	if err != nil {
		return false, err
	}

	if current {
		err = s.repo.Remove(ctx, streamID)
	} else {
		err = s.repo.Add(ctx, streamID)
	}
	if err != nil {
		return current, fmt.Errorf("toggling favorite %d: %w", streamID, err)
	}

	change := Change{StreamID: streamID, Favorite: !current}
	s.logger.DebugContext(ctx, "favorite toggled",
		slog.Int("stream_id", streamID),
		slog.Bool("favorite", change.Favorite),
	)
	s.bus.Publish(change)

	return change.Favorite, nil
}

// List returns the favorite stream IDs, oldest first.
func (s *Store) List(ctx context.Context) ([]int, error) {
	favorites, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	ids := make([]int, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.StreamID)
	}
	return ids, nil
}

// Set returns the favorite stream IDs as a set.
func (s *Store) Set(ctx context.Context) (map[int]struct{}, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Count returns the number of favorites.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting favorites: %w", err)
	}
	return int(n), nil
}

// Subscribe registers a change listener. Slow listeners miss changes rather
// than block toggles.
func (s *Store) Subscribe(buffer int) *events.Subscriber[Change] {
	return s.bus.Subscribe(buffer)
}

// Unsubscribe removes a change listener.
func (s *Store) Unsubscribe(id string) {
	s.bus.Unsubscribe(id)
}

// Close closes all subscriber channels.
func (s *Store) Close() {
	s.bus.Close()
}

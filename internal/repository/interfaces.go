// Package repository defines data access interfaces for tvee entities.
package repository

import (
	"context"

	"github.com/jmylchreest/tvee/internal/models"
)

// FavoriteRepository defines operations for favorite persistence.
type FavoriteRepository interface {
	// Exists reports whether streamID is stored as a favorite.
	Exists(ctx context.Context, streamID int) (bool, error)
	// Add stores streamID as a favorite. Adding an existing favorite is a no-op.
	Add(ctx context.Context, streamID int) error
	// Remove deletes streamID. Removing a missing favorite is a no-op.
	Remove(ctx context.Context, streamID int) error
	// GetAll returns favorites, oldest first.
	GetAll(ctx context.Context) ([]*models.Favorite, error)
	// Count returns the number of favorites.
	Count(ctx context.Context) (int64, error)
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmylchreest/tvee/internal/models"
)

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a GORM-backed FavoriteRepository.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Exists(ctx context.Context, streamID int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("stream_id = ?", streamID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *favoriteRepository) Add(ctx context.Context, streamID int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stream_id"}}, DoNothing: true}).
		Create(&models.Favorite{StreamID: streamID}).Error
}

func (r *favoriteRepository) Remove(ctx context.Context, streamID int) error {
	return r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Delete(&models.Favorite{}).Error
}

func (r *favoriteRepository) GetAll(ctx context.Context) ([]*models.Favorite, error) {
	var favorites []*models.Favorite
	if err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&favorites).Error; err != nil {
		return nil, err
	}
	return favorites, nil
}

func (r *favoriteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Count(&count).Error
	return count, err
}

package repository

import (
	"context"

	"github.com/ManuelReschke/videopass/app/models"
	"gorm.io/gorm"
)

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

// List returns the whole catalog ordered by id.
func (r *videoRepository) List(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).Order("id ASC").Find(&videos).Error
	return videos, err
}

func (r *videoRepository) GetByID(ctx context.Context, id uint) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).First(&video, id).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

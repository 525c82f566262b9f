package repository

import (
	"context"

	"github.com/ManuelReschke/videopass/app/models"
	"gorm.io/gorm"
)

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) Grant(ctx context.Context, access *models.Access) (bool, error) {
	err := r.db.WithContext(ctx).Create(access).Error
	if err == nil {
		return true, nil
	}
	if IsDuplicateKey(err) {
		return false, nil
	}
	return false, err
}

func (r *accessRepository) Exists(ctx context.Context, userID, videoID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Access{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

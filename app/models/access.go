package models

import "time"

// Access grants a user playback of a video. The row's presence is the only
// access predicate.
type Access struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_accesses_user_video,priority:1" json:"user_id"`
	VideoID   uint      `gorm:"not null;uniqueIndex:ux_accesses_user_video,priority:2" json:"video_id"`
	OrderID   *string   `gorm:"type:varchar(36);index" json:"order_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Access) TableName() string {
	return "accesses"
}

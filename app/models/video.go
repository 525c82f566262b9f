package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrNonPositivePrice = errors.New("price must be greater than zero")

// Video is a purchasable training video. Rows are provisioned out of band;
// the column names match the existing Supabase table.
type Video struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"column:titulo;type:varchar(255);not null" json:"title" validate:"required,max=255"`
	Description string          `gorm:"column:descripcion;type:text" json:"description"`
	Price       decimal.Decimal `gorm:"column:precio;type:numeric(10,2);not null" json:"price" validate:"required"`
	PrivateURL  string          `gorm:"column:url_privada;type:text" json:"url"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) Validate() error {
	if err := validator.New().Struct(v); err != nil {
		return err
	}
	if !v.Price.IsPositive() {
		return ErrNonPositivePrice
	}
	return nil
}

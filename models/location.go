package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
)

// Location is an opaque place a UPL can sit in (stock room, shelf block,
// staging area). The engine only needs existence and equality; descriptive
// metadata belongs to whoever owns the floor plan.
type Location struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLocation struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewLocation) validate(ctx context.Context, id int) error {
	// name
	if err := utils.ValidateUnique[Location](ctx, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateLocation(ctx context.Context, input *NewLocation) (*Location, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	location := Location{
		Name:     input.Name,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func GetLocation(ctx context.Context, id int) (*Location, error) {
	return utils.FetchSingleModel[Location](ctx, id)
}

func GetLocations(ctx context.Context) ([]*Location, error) {
	return utils.FetchAllModels[Location](ctx)
}

package models

import (
	"context"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"gorm.io/gorm"
)

type MoveUpl struct {
	LocationFrom int `json:"location_from" binding:"required"`
	LocationTo   int `json:"location_to" binding:"required"`
}

// MoveUplCommand relocates an Active UPL. The caller states where it
// believes the UPL currently is; a stale LocationFrom means someone else
// moved it first and the command fails with a location conflict instead
// of silently teleporting stock. Same-place moves are rejected so the
// ledger never records a no-op.
func MoveUplCommand(ctx context.Context, uplId string, input *MoveUpl) (*Upl, error) {

	if input.LocationFrom == input.LocationTo {
		return nil, utils.ErrorNoOpMove
	}
	if err := utils.ValidateResourceId[Location](ctx, input.LocationTo); err != nil {
		return nil, err
	}

	release, err := utils.LockUpls(ctx, "uplCommands_move.go", "MoveUplCommand", uplId)
	if err != nil {
		return nil, err
	}
	defer release()

	var upl *Upl
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		upl, err = fetchUplTx(tx, uplId)
		if err != nil {
			return err
		}
		if !upl.IsActive() {
			return utils.ErrorInvalidState
		}
		if upl.LocationId != input.LocationFrom {
			return utils.ErrorLocationConflict
		}

		upl.LocationId = input.LocationTo
		if err := saveUplTx(tx, upl); err != nil {
			return err
		}

		_, err := appendUplEvent(tx, upl.ID, UplEventMoved, MovedPayload{
			LocationFrom: input.LocationFrom,
			LocationTo:   input.LocationTo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishUplEvent(ctx, UplEventMoved, upl)
	return upl, nil
}

package models

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DivideUpl struct {
	TargetUplId    string          `json:"target_upl_id"`
	TargetQuantity decimal.Decimal `json:"target_quantity" binding:"required"`
}

// DivideUplCommand splits targetQuantity off an Active source UPL into a
// new child UPL at the same location. Quantity is conserved: the split
// must leave a strictly positive remainder on the source, so dividing the
// full quantity is rejected (move the UPL instead).
func DivideUplCommand(ctx context.Context, sourceUplId string, input *DivideUpl) (*Upl, *Upl, error) {

	if input.TargetUplId == "" {
		input.TargetUplId = uuid.NewString()
	}
	if sourceUplId == input.TargetUplId {
		return nil, nil, utils.ErrorInvalidSplit
	}
	if config.StrictUplCodes() && utils.IsNumericUplCode(input.TargetUplId) {
		if err := utils.ValidateUplCode(input.TargetUplId); err != nil {
			return nil, nil, err
		}
	}

	release, err := utils.LockUpls(ctx, "uplCommands_divide.go", "DivideUplCommand", sourceUplId, input.TargetUplId)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var source, target *Upl
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		source, err = fetchUplTx(tx, sourceUplId)
		if err != nil {
			return err
		}
		if !source.IsActive() {
			return utils.ErrorInvalidState
		}
		if !input.TargetQuantity.IsPositive() ||
			input.TargetQuantity.GreaterThanOrEqual(source.Quantity) {
			return utils.ErrorInvalidSplit
		}

		source.Quantity = source.Quantity.Sub(input.TargetQuantity)
		if err := saveUplTx(tx, source); err != nil {
			return err
		}

		createdBy, _ := utils.GetInitiatorIdFromContext(ctx)
		target = &Upl{
			ID:         input.TargetUplId,
			Quantity:   input.TargetQuantity,
			Unit:       source.Unit,
			Status:     UplStatusActive,
			ParentId:   &source.ID,
			LocationId: source.LocationId,
			BestBefore: source.BestBefore,
			CreatedBy:  createdBy,
		}
		if err := tx.Create(target).Error; err != nil {
			if isDuplicateKeyError(err) {
				return utils.ErrorAlreadyExists
			}
			return err
		}

		payload := DividedPayload{
			SourceUplId:         source.ID,
			TargetUplId:         target.ID,
			TargetQuantity:      input.TargetQuantity,
			Unit:                target.Unit,
			BestBefore:          target.BestBefore,
			SourceQuantityAfter: source.Quantity,
		}
		if _, err := appendUplEvent(tx, source.ID, UplEventDivided, payload); err != nil {
			return err
		}
		_, err := appendUplEvent(tx, target.ID, UplEventDivided, payload)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	publishUplEvent(ctx, UplEventDivided, map[string]any{
		"source": source,
		"target": target,
	})
	return source, target, nil
}

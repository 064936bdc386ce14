package models

import (
	"context"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"gorm.io/gorm"
)

type MergeUpl struct {
	FromUplId string `json:"from_upl_id" binding:"required"`
}

// MergeUplCommand absorbs the source UPL into the destination. Both must
// be Active and sitting at the same location; the source keeps its final
// quantity frozen under status Merged with MergedIntoId pointing at the
// destination. Merging a UPL into itself is rejected.
func MergeUplCommand(ctx context.Context, toUplId string, input *MergeUpl) (*Upl, *Upl, error) {

	if toUplId == input.FromUplId {
		return nil, nil, utils.ErrorInvalidState
	}

	release, err := utils.LockUpls(ctx, "uplCommands_merge.go", "MergeUplCommand", toUplId, input.FromUplId)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var to, from *Upl
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		to, err = fetchUplTx(tx, toUplId)
		if err != nil {
			return err
		}
		from, err = fetchUplTx(tx, input.FromUplId)
		if err != nil {
			return err
		}
		if !to.IsActive() || !from.IsActive() {
			return utils.ErrorInvalidState
		}
		if to.LocationId != from.LocationId {
			return utils.ErrorLocationMismatch
		}

		fromQuantity := from.Quantity
		to.Quantity = to.Quantity.Add(fromQuantity)
		if err := saveUplTx(tx, to); err != nil {
			return err
		}

		from.Status = UplStatusMerged
		from.MergedIntoId = &to.ID
		if err := saveUplTx(tx, from); err != nil {
			return err
		}

		payload := MergedPayload{
			ToUplId:         to.ID,
			FromUplId:       from.ID,
			FromQuantity:    fromQuantity,
			ToQuantityAfter: to.Quantity,
		}
		if _, err := appendUplEvent(tx, to.ID, UplEventMerged, payload); err != nil {
			return err
		}
		_, err := appendUplEvent(tx, from.ID, UplEventMerged, payload)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	publishUplEvent(ctx, UplEventMerged, map[string]any{
		"to":   to,
		"from": from,
	})
	return to, from, nil
}

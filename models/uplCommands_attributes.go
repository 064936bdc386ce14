package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Attribute commands: best-before, culling and price. Each overwrites the
// current value (the ledger keeps the full sequence) and requires the UPL
// to be Active.

type SetUplBestBefore struct {
	// Omitted/null clears the date.
	BestBefore *time.Time `json:"best_before"`
}

func SetUplBestBeforeCommand(ctx context.Context, uplId string, input *SetUplBestBefore) (*Upl, error) {
	return mutateUpl(ctx, "uplCommands_attributes.go", "SetUplBestBeforeCommand", uplId,
		UplEventBestBeforeSet,
		func(upl *Upl) (any, error) {
			upl.BestBefore = input.BestBefore
			return BestBeforeSetPayload{BestBefore: input.BestBefore}, nil
		})
}

type SetUplCulling struct {
	CullingId   int             `json:"culling_id" binding:"required"`
	Description string          `json:"description"`
	CulledPrice decimal.Decimal `json:"culled_price" binding:"required"`
}

func SetUplCullingCommand(ctx context.Context, uplId string, input *SetUplCulling) (*Upl, error) {
	if !input.CulledPrice.IsPositive() {
		return nil, utils.ErrorInvalidQuantity
	}
	return mutateUpl(ctx, "uplCommands_attributes.go", "SetUplCullingCommand", uplId,
		UplEventCullingSet,
		func(upl *Upl) (any, error) {
			upl.CullingId = &input.CullingId
			upl.CullingDescription = &input.Description
			upl.CulledPrice = &input.CulledPrice
			return CullingSetPayload{
				CullingId:   input.CullingId,
				Description: input.Description,
				CulledPrice: input.CulledPrice,
			}, nil
		})
}

type SetUplPrice struct {
	NetRetailPrice   decimal.Decimal `json:"net_retail_price" binding:"required"`
	Vat              string          `json:"vat" binding:"required"`
	GrossRetailPrice decimal.Decimal `json:"gross_retail_price" binding:"required"`
}

func SetUplPriceCommand(ctx context.Context, uplId string, input *SetUplPrice) (*Upl, error) {

	vat, err := ParseVAT(input.Vat)
	if err != nil {
		return nil, utils.ErrorPriceInconsistent
	}
	if !input.NetRetailPrice.IsPositive() || !input.GrossRetailPrice.IsPositive() {
		return nil, utils.ErrorPriceInconsistent
	}
	if !vat.CheckGross(input.NetRetailPrice, input.GrossRetailPrice) {
		return nil, utils.ErrorPriceInconsistent
	}

	return mutateUpl(ctx, "uplCommands_attributes.go", "SetUplPriceCommand", uplId,
		UplEventPriceSet,
		func(upl *Upl) (any, error) {
			upl.NetRetailPrice = &input.NetRetailPrice
			upl.Vat = &vat
			upl.GrossRetailPrice = &input.GrossRetailPrice
			return PriceSetPayload{
				NetRetailPrice:   input.NetRetailPrice,
				Vat:              vat,
				GrossRetailPrice: input.GrossRetailPrice,
			}, nil
		})
}

// mutateUpl runs the shared lock / load / check-active / save / append
// sequence for single-UPL attribute commands.
func mutateUpl(ctx context.Context, moduleName string, functionName string, uplId string,
	eventType UplEventType, apply func(*Upl) (any, error)) (*Upl, error) {

	release, err := utils.LockUpls(ctx, moduleName, functionName, uplId)
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

		payload, err := apply(upl)
		if err != nil {
			return err
		}
		if err := saveUplTx(tx, upl); err != nil {
			return err
		}

		_, err = appendUplEvent(tx, upl.ID, eventType, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishUplEvent(ctx, eventType, upl)
	return upl, nil
}

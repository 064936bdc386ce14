package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"gorm.io/gorm"
)

// ReplayUpl folds the UPL's ledger into a fresh projection, ignoring the
// stored row. The fold is the source of truth; the Upl row is a cache of
// it. Divided and Merged events are dual-written to both participants, so
// the fold dispatches on which side this UPL is.
func ReplayUpl(ctx context.Context, uplId string) (*Upl, error) {

	events, err := GetUplHistory(ctx, uplId)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	upl := &Upl{ID: uplId, Status: UplStatusActive}
	for _, event := range events {
		if err := applyUplEvent(upl, event); err != nil {
			return nil, err
		}
	}
	return upl, nil
}

func applyUplEvent(upl *Upl, event *UplEvent) error {
	switch event.EventType {

	case UplEventCreated:
		var p CreatedPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		upl.Quantity = p.Quantity
		upl.Unit = p.Unit
		upl.LocationId = p.LocationId
		upl.BestBefore = p.BestBefore
		upl.CreatedBy = event.CreatedBy
		upl.CreatedAt = event.OccurredAt

	case UplEventDivided:
		var p DividedPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		if upl.ID == p.SourceUplId {
			upl.Quantity = p.SourceQuantityAfter
		} else {
			// birth of the child
			upl.Quantity = p.TargetQuantity
			upl.Unit = p.Unit
			upl.BestBefore = p.BestBefore
			upl.ParentId = &p.SourceUplId
			upl.CreatedBy = event.CreatedBy
			upl.CreatedAt = event.OccurredAt
		}

	case UplEventMerged:
		var p MergedPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		if upl.ID == p.ToUplId {
			upl.Quantity = p.ToQuantityAfter
		} else {
			upl.Status = UplStatusMerged
			upl.MergedIntoId = &p.ToUplId
		}

	case UplEventMoved:
		var p MovedPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		upl.LocationId = p.LocationTo

	case UplEventBestBeforeSet:
		var p BestBeforeSetPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		upl.BestBefore = p.BestBefore

	case UplEventCullingSet:
		var p CullingSetPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		upl.CullingId = &p.CullingId
		upl.CullingDescription = &p.Description
		upl.CulledPrice = &p.CulledPrice

	case UplEventPriceSet:
		var p PriceSetPayload
		if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
			return err
		}
		upl.NetRetailPrice = &p.NetRetailPrice
		upl.Vat = &p.Vat
		upl.GrossRetailPrice = &p.GrossRetailPrice

	default:
		return fmt.Errorf("unknown event type %q at sequence %d", event.EventType, event.SequenceNo)
	}
	return nil
}

// UplDrift describes a mismatch between a stored projection and its
// ledger fold.
type UplDrift struct {
	UplId  string
	Field  string
	Stored string
	Folded string
}

// diffUplProjection compares the business fields the fold rebuilds.
func diffUplProjection(stored *Upl, folded *Upl) []UplDrift {
	var drifts []UplDrift
	record := func(field, storedVal, foldedVal string) {
		if storedVal != foldedVal {
			drifts = append(drifts, UplDrift{
				UplId: stored.ID, Field: field, Stored: storedVal, Folded: foldedVal,
			})
		}
	}
	record("quantity", stored.Quantity.String(), folded.Quantity.String())
	record("unit", stored.Unit, folded.Unit)
	record("status", string(stored.Status), string(folded.Status))
	record("location_id", fmt.Sprint(stored.LocationId), fmt.Sprint(folded.LocationId))
	record("parent_id", strPtr(stored.ParentId), strPtr(folded.ParentId))
	record("merged_into_id", strPtr(stored.MergedIntoId), strPtr(folded.MergedIntoId))
	record("best_before", timePtr(stored.BestBefore), timePtr(folded.BestBefore))
	return drifts
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// timePtr formats at second precision; DATETIME columns and JSON payloads
// round sub-second differently and that is not drift.
func timePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RebuildUplProjection folds the ledger and, when repair is set, writes
// the fold back over a drifted row. Returns the drifts it found.
func RebuildUplProjection(ctx context.Context, uplId string, repair bool) ([]UplDrift, error) {

	release, err := utils.LockUpls(ctx, "rebuild.go", "RebuildUplProjection", uplId)
	if err != nil {
		return nil, err
	}
	defer release()

	folded, err := ReplayUpl(ctx, uplId)
	if err != nil {
		return nil, err
	}
	stored, err := GetUpl(ctx, uplId)
	if err != nil {
		return nil, err
	}

	drifts := diffUplProjection(stored, folded)
	if len(drifts) == 0 || !repair {
		return drifts, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored.Quantity = folded.Quantity
		stored.Unit = folded.Unit
		stored.Status = folded.Status
		stored.LocationId = folded.LocationId
		stored.ParentId = folded.ParentId
		stored.MergedIntoId = folded.MergedIntoId
		stored.BestBefore = folded.BestBefore
		return saveUplTx(tx, stored)
	})
	if err != nil {
		return drifts, err
	}
	return drifts, nil
}

// ListUplIds returns every UPL id known to the ledger, for full rebuilds.
func ListUplIds(ctx context.Context) ([]string, error) {
	db := config.GetDB()
	var ids []string
	err := db.WithContext(ctx).
		Model(&UplEvent{}).
		Distinct("upl_id").
		Order("upl_id").
		Pluck("upl_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

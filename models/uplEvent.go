package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UplEvent is one append-only ledger row. SequenceNo is the autoincrement
// primary key: globally monotonic, and per-UPL ordered by filtering on
// UplId. Rows are never updated or deleted; the Upl row is a cache of the
// fold over its events, not the source of truth.
type UplEvent struct {
	SequenceNo int64        `gorm:"primaryKey;autoIncrement" json:"sequence_no"`
	UplId      string       `gorm:"size:36;index;not null" json:"upl_id"`
	EventType  UplEventType `gorm:"size:20;not null" json:"event_type"`
	Payload    string       `gorm:"type:text" json:"payload"`
	OccurredAt time.Time    `gorm:"autoCreateTime;index" json:"occurred_at"`
	CreatedBy  string       `gorm:"size:100" json:"created_by"`
}

/* event payloads */

type CreatedPayload struct {
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	LocationId int             `json:"location_id"`
	BestBefore *time.Time      `json:"best_before,omitempty"`
}

type DividedPayload struct {
	SourceUplId    string          `json:"source_upl_id"`
	TargetUplId    string          `json:"target_upl_id"`
	TargetQuantity decimal.Decimal `json:"target_quantity"`
	// Unit and BestBefore are inherited from the source; carried here so
	// the fold can rebuild the child without consulting the source's events.
	Unit                string          `json:"unit"`
	BestBefore          *time.Time      `json:"best_before,omitempty"`
	SourceQuantityAfter decimal.Decimal `json:"source_quantity_after"`
}

type MergedPayload struct {
	ToUplId         string          `json:"to_upl_id"`
	FromUplId       string          `json:"from_upl_id"`
	FromQuantity    decimal.Decimal `json:"from_quantity"`
	ToQuantityAfter decimal.Decimal `json:"to_quantity_after"`
}

type MovedPayload struct {
	LocationFrom int `json:"location_from"`
	LocationTo   int `json:"location_to"`
}

// BestBeforeSetPayload carries nil when the date was cleared.
type BestBeforeSetPayload struct {
	BestBefore *time.Time `json:"best_before,omitempty"`
}

type CullingSetPayload struct {
	CullingId   int             `json:"culling_id"`
	Description string          `json:"description"`
	CulledPrice decimal.Decimal `json:"culled_price"`
}

type PriceSetPayload struct {
	NetRetailPrice   decimal.Decimal `json:"net_retail_price"`
	Vat              VAT             `json:"vat"`
	GrossRetailPrice decimal.Decimal `json:"gross_retail_price"`
}

// appendUplEvent writes one ledger row inside the caller's transaction.
// The Lifecycle Engine is the sole writer: state delta and ledger entry
// commit together or not at all.
func appendUplEvent(tx *gorm.DB, uplId string, eventType UplEventType, payload any) (int64, error) {

	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	createdBy, _ := utils.GetInitiatorIdFromContext(tx.Statement.Context)

	event := UplEvent{
		UplId:     uplId,
		EventType: eventType,
		Payload:   string(b),
		CreatedBy: createdBy,
	}
	if err := tx.Create(&event).Error; err != nil {
		return 0, err
	}
	return event.SequenceNo, nil
}

// GetUplHistory returns the UPL's events oldest first.
func GetUplHistory(ctx context.Context, uplId string) ([]*UplEvent, error) {

	if err := utils.ValidateResourceId[Upl](ctx, uplId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var events []*UplEvent
	err := db.WithContext(ctx).
		Where("upl_id = ?", uplId).
		Order("sequence_no ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetGlobalHistory returns events across all UPLs with sequence_no > since,
// oldest first, for cross-UPL auditing. limit <= 0 means no limit.
func GetGlobalHistory(ctx context.Context, since int64, limit int) ([]*UplEvent, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("sequence_no > ?", since).
		Order("sequence_no ASC")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	var events []*UplEvent
	if err := dbCtx.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// publishUplEvent fans the committed mutation out to the optional pubsub
// topic. Best-effort; the ledger row is already durable.
func publishUplEvent(ctx context.Context, eventType UplEventType, obj any) {
	config.PublishEvent(ctx, string(eventType), obj)
}

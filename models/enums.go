package models

// UplStatus is the lifecycle status of a UPL.
//
//	A = Active   : in stock, mutable
//	M = Merged   : absorbed into another UPL; frozen, excluded from
//	               active inventory totals
//	C = Consumed : reserved for future full-depletion semantics
type UplStatus string

const (
	UplStatusActive   UplStatus = "A"
	UplStatusMerged   UplStatus = "M"
	UplStatusConsumed UplStatus = "C"
)

func (s UplStatus) IsActive() bool {
	return s == UplStatusActive
}

// UplEventType tags ledger entries. One tag per lifecycle verb.
type UplEventType string

const (
	UplEventCreated       UplEventType = "Created"
	UplEventDivided       UplEventType = "Divided"
	UplEventMerged        UplEventType = "Merged"
	UplEventMoved         UplEventType = "Moved"
	UplEventBestBeforeSet UplEventType = "BestBeforeSet"
	UplEventCullingSet    UplEventType = "CullingSet"
	UplEventPriceSet      UplEventType = "PriceSet"
)

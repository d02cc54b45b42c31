package variant

import "time"

// StockChangedEvent is emitted after a committed stock mutation or variant removal.
type StockChangedEvent struct {
	Variant    *Variant
	VariantID  string
	Deleted    bool
	OccurredAt time.Time
}

func (StockChangedEvent) EventName() string { return "variant.stock_changed" }

func NewStockChangedEvent(v *Variant) StockChangedEvent {
	return StockChangedEvent{
		Variant:    v.Clone(),
		VariantID:  v.ID,
		OccurredAt: time.Now().UTC(),
	}
}

func NewVariantDeletedEvent(id string) StockChangedEvent {
	return StockChangedEvent{
		VariantID:  id,
		Deleted:    true,
		OccurredAt: time.Now().UTC(),
	}
}

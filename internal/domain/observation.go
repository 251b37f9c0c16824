package domain

// RawPriceObservation is one priced BIN listing seen during an ingestion run.
// Corresponds to raw_price_observations table.
type RawPriceObservation struct {
	ID         int64   // BIGSERIAL primary key (0 before insert)
	AuctionID  string  // source-unique auction identifier
	ItemID     string  // canonical item identifier (skyblock id)
	VariantKey string  // canonical variant key
	Price      float64 // BIN price (listing starting bid)
	ListedAt   int64   // listing creation, Unix ms
	IngestedAt int64   // staging time, Unix ms
}

// VariantRef identifies one (item, variant) pair.
type VariantRef struct {
	ItemID     string
	VariantKey string
}

// Ref returns the (item, variant) pair of the observation.
func (o *RawPriceObservation) Ref() VariantRef {
	return VariantRef{ItemID: o.ItemID, VariantKey: o.VariantKey}
}

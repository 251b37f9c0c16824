package mysql

import "skyblock-price-lab/internal/domain"

type itemRow struct {
	ItemID    string `gorm:"primaryKey;size:128"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
}

func (itemRow) TableName() string { return "items" }

type rawObservationRow struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	AuctionID  string  `gorm:"size:64;not null;uniqueIndex"`
	ItemID     string  `gorm:"size:128;not null;index:idx_raw_obs_variant_listed,priority:1"`
	VariantKey string  `gorm:"size:512;not null;index:idx_raw_obs_variant_listed,priority:2"`
	Price      float64 `gorm:"not null"`
	ListedAt   int64   `gorm:"not null;index;index:idx_raw_obs_variant_listed,priority:3"`
	IngestedAt int64   `gorm:"not null;index"`
}

func (rawObservationRow) TableName() string { return "raw_price_observations" }

func rawRowFromDomain(o *domain.RawPriceObservation) rawObservationRow {
	return rawObservationRow{
		AuctionID:  o.AuctionID,
		ItemID:     o.ItemID,
		VariantKey: o.VariantKey,
		Price:      o.Price,
		ListedAt:   o.ListedAt,
		IngestedAt: o.IngestedAt,
	}
}

func (r rawObservationRow) toDomain() *domain.RawPriceObservation {
	return &domain.RawPriceObservation{
		ID:         r.ID,
		AuctionID:  r.AuctionID,
		ItemID:     r.ItemID,
		VariantKey: r.VariantKey,
		Price:      r.Price,
		ListedAt:   r.ListedAt,
		IngestedAt: r.IngestedAt,
	}
}

type summaryRow struct {
	ItemID              string `gorm:"primaryKey;size:128"`
	VariantKey          string `gorm:"primaryKey;size:512"`
	RecentLowestPrice   *float64
	RecentVolume        int `gorm:"not null;default:0"`
	RecentObservedAt    *int64
	ThreeDayLowestPrice *float64
	ThreeDayVolume      int `gorm:"not null;default:0"`
	SevenDayLowestPrice *float64
	SevenDayVolume      int   `gorm:"not null;default:0"`
	LastCalculatedAt    int64 `gorm:"not null"`
}

func (summaryRow) TableName() string { return "variant_summaries" }

func summaryRowFromDomain(s *domain.VariantSummary) summaryRow {
	return summaryRow{
		ItemID:              s.ItemID,
		VariantKey:          s.VariantKey,
		RecentLowestPrice:   s.RecentLowestPrice,
		RecentVolume:        s.RecentVolume,
		RecentObservedAt:    s.RecentObservedAt,
		ThreeDayLowestPrice: s.ThreeDayLowestPrice,
		ThreeDayVolume:      s.ThreeDayVolume,
		SevenDayLowestPrice: s.SevenDayLowestPrice,
		SevenDayVolume:      s.SevenDayVolume,
		LastCalculatedAt:    s.LastCalculatedAt,
	}
}

func (r summaryRow) toDomain() *domain.VariantSummary {
	return &domain.VariantSummary{
		ItemID:              r.ItemID,
		VariantKey:          r.VariantKey,
		RecentLowestPrice:   r.RecentLowestPrice,
		RecentVolume:        r.RecentVolume,
		RecentObservedAt:    r.RecentObservedAt,
		ThreeDayLowestPrice: r.ThreeDayLowestPrice,
		ThreeDayVolume:      r.ThreeDayVolume,
		SevenDayLowestPrice: r.SevenDayLowestPrice,
		SevenDayVolume:      r.SevenDayVolume,
		LastCalculatedAt:    r.LastCalculatedAt,
	}
}

type pageStateRow struct {
	Page        int   `gorm:"primaryKey;autoIncrement:false"`
	LastUpdated int64 `gorm:"not null"`
	UpdatedAt   int64 `gorm:"autoUpdateTime:milli"`
}

func (pageStateRow) TableName() string { return "auction_page_state" }

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

func obs(auctionID, itemID, variant string, price float64, listedAt, ingestedAt int64) *domain.RawPriceObservation {
	return &domain.RawPriceObservation{
		AuctionID:  auctionID,
		ItemID:     itemID,
		VariantKey: variant,
		Price:      price,
		ListedAt:   listedAt,
		IngestedAt: ingestedAt,
	}
}

func TestRawObservationStore_InsertBulkSkipsStoredAuctions(t *testing.T) {
	ctx := context.Background()
	store := NewRawObservationStore()

	n, err := store.InsertBulk(ctx, []*domain.RawPriceObservation{
		obs("a1", "HYPERION", "LEGENDARY", 100, 1000, 2000),
		obs("a2", "HYPERION", "LEGENDARY", 110, 1100, 2000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.InsertBulk(ctx, []*domain.RawPriceObservation{
		obs("a2", "HYPERION", "LEGENDARY", 999, 1100, 3000),
		obs("a3", "HYPERION", "LEGENDARY", 120, 1200, 3000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, store.Count())

	got, err := store.GetByVariantSince(ctx, domain.VariantRef{ItemID: "HYPERION", VariantKey: "LEGENDARY"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 110.0, got[1].Price, "stored row must not be overwritten")
}

func TestRawObservationStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewRawObservationStore()

	_, err := store.InsertBulk(context.Background(), []*domain.RawPriceObservation{
		obs("a1", "X", "", 1, 1, 1),
		obs("a1", "X", "", 2, 2, 2),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 0, store.Count())
}

func TestRawObservationStore_InsertBulkInvalid(t *testing.T) {
	store := NewRawObservationStore()

	_, err := store.InsertBulk(context.Background(), []*domain.RawPriceObservation{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.InsertBulk(context.Background(), []*domain.RawPriceObservation{obs("", "X", "", 1, 1, 1)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRawObservationStore_ListVariantsSince(t *testing.T) {
	ctx := context.Background()
	store := NewRawObservationStore()

	_, err := store.InsertBulk(ctx, []*domain.RawPriceObservation{
		obs("a1", "PET", "pet:TIGER", 100, 500, 1),
		obs("a2", "PET", "pet:TIGER", 100, 1500, 1),
		obs("a3", "PET", "pet:LION", 100, 900, 1),
		obs("a4", "HYPERION", "LEGENDARY", 100, 2000, 1),
	})
	require.NoError(t, err)

	refs, err := store.ListVariantsSince(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, []domain.VariantRef{
		{ItemID: "HYPERION", VariantKey: "LEGENDARY"},
		{ItemID: "PET", VariantKey: "pet:TIGER"},
	}, refs)
}

func TestRawObservationStore_GetByVariantSinceNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewRawObservationStore()
	ref := domain.VariantRef{ItemID: "X", VariantKey: "k"}

	_, err := store.InsertBulk(ctx, []*domain.RawPriceObservation{
		obs("a1", "X", "k", 1, 100, 1),
		obs("a2", "X", "k", 2, 300, 1),
		obs("a3", "X", "k", 3, 200, 1),
		obs("a4", "X", "other", 4, 400, 1),
	})
	require.NoError(t, err)

	got, err := store.GetByVariantSince(ctx, ref, 150)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(300), got[0].ListedAt)
	assert.Equal(t, int64(200), got[1].ListedAt)
}

func TestRawObservationStore_RetentionBoundary(t *testing.T) {
	ctx := context.Background()
	store := NewRawObservationStore()
	const (
		ingestedAt = int64(1_000_000)
		retention  = int64(10_000)
		eps        = int64(1)
	)

	_, err := store.InsertBulk(ctx, []*domain.RawPriceObservation{obs("a1", "X", "k", 1, ingestedAt, ingestedAt)})
	require.NoError(t, err)

	// Run at T+R-eps: cutoff is T-eps, row kept.
	removed, err := store.DeleteIngestedBefore(ctx, ingestedAt+retention-eps-retention)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
	assert.Equal(t, 1, store.Count())

	// Run at T+R+eps: cutoff is T+eps, row gone.
	removed, err = store.DeleteIngestedBefore(ctx, ingestedAt+retention+eps-retention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 0, store.Count())
}

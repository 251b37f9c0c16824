package ingestion

import (
	"context"
	"errors"

	"skyblock-price-lab/internal/domain"
)

// Ingestion errors.
var (
	// ErrSourceUnavailable is returned when a page fetch fails or the source
	// reports an unsuccessful response.
	ErrSourceUnavailable = errors.New("auction source unavailable")

	// ErrDecode is returned when a listing's item payload cannot be decoded.
	ErrDecode = errors.New("item decode failed")
)

// AuctionSource provides pages of the auction snapshot.
type AuctionSource interface {
	// FetchPage returns one page. The first page reports TotalPages.
	FetchPage(ctx context.Context, page int) (*domain.AuctionPage, error)
}

// ItemDecoder turns a listing's opaque item payload into a structured item.
type ItemDecoder interface {
	Decode(itemBytes string) (*domain.DecodedItem, error)
}

// KeyGenerator builds variant keys. A nil key means the item has no
// canonical identifier.
type KeyGenerator interface {
	Generate(item *domain.DecodedItem, rarity string) *string
}

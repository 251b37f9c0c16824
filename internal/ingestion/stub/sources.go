// Package stub provides in-memory auction sources and decoders for tests and
// offline runs.
package stub

import (
	"context"
	"fmt"
	"sync"

	"skyblock-price-lab/internal/domain"
)

// AuctionSource serves fixed pages. Implements ingestion.AuctionSource.
type AuctionSource struct {
	mu       sync.Mutex
	pages    []*domain.AuctionPage
	failures map[int]error
	calls    []int
	onFetch  func(page int)
}

// NewAuctionSource creates a stub source. TotalPages is filled in from the
// number of pages when left zero.
func NewAuctionSource(pages []*domain.AuctionPage) *AuctionSource {
	for i, p := range pages {
		if p.TotalPages == 0 {
			p.TotalPages = len(pages)
		}
		p.Page = i
	}
	return &AuctionSource{
		pages:    pages,
		failures: make(map[int]error),
	}
}

// FailPage makes fetches of page return err.
func (s *AuctionSource) FailPage(page int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[page] = err
}

// OnFetch registers a hook called after each fetch.
func (s *AuctionSource) OnFetch(fn func(page int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFetch = fn
}

// SetPages replaces the served pages.
func (s *AuctionSource) SetPages(pages []*domain.AuctionPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = pages
}

// Calls returns the pages requested so far, in order.
func (s *AuctionSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.calls))
	copy(out, s.calls)
	return out
}

// FetchPage returns a copy of the requested page.
func (s *AuctionSource) FetchPage(_ context.Context, page int) (*domain.AuctionPage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	hook := s.onFetch
	err := s.failures[page]
	var p *domain.AuctionPage
	if page >= 0 && page < len(s.pages) {
		c := *s.pages[page]
		c.Listings = append([]domain.Listing(nil), s.pages[page].Listings...)
		p = &c
	}
	s.mu.Unlock()

	if hook != nil {
		defer hook(page)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return p, nil
}

// Decoder maps item payloads to fixed decoded items.
// Implements ingestion.ItemDecoder.
type Decoder struct {
	items map[string]*domain.DecodedItem
}

// NewDecoder creates a stub decoder. Unknown payloads fail to decode.
func NewDecoder(items map[string]*domain.DecodedItem) *Decoder {
	return &Decoder{items: items}
}

// Decode returns the item registered for itemBytes.
func (d *Decoder) Decode(itemBytes string) (*domain.DecodedItem, error) {
	item, ok := d.items[itemBytes]
	if !ok {
		return nil, fmt.Errorf("unknown payload %q", itemBytes)
	}
	c := *item
	return &c, nil
}

package domain

// AuctionPage is one page of the paginated auction snapshot.
type AuctionPage struct {
	Success     bool
	Page        int
	TotalPages  int
	LastUpdated int64 // snapshot freshness, Unix ms
	Listings    []Listing
}

// Listing is a single auction listing as returned by the source.
type Listing struct {
	UUID        string
	ItemBytes   string // base64 gzip NBT payload
	Bin         bool
	StartingBid int64 // BIN price for fixed-price listings
	Start       int64 // listing creation, Unix ms
	Tier        string
	ItemName    string
}

// PetInfo describes the pet carried by a pet item.
type PetInfo struct {
	Type  string
	Level int
	Tier  string
}

// DecodedItem is the structured form of a listing's item payload.
type DecodedItem struct {
	CanonicalID  string
	Name         string
	PetInfo      *PetInfo
	Enchantments map[string]int
	Attributes   map[string]string
	Extra        map[string]string
}

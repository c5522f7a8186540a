package market

import "math/big"

// ListingType identifies the sale protocol for a listing. The set is closed:
// anything outside it is rejected at creation.
type ListingType uint8

const (
	// TypeUnique listings sell one redemption per buyer (NFT-class items).
	TypeUnique ListingType = iota
	// TypeRaffle listings sell raffle entries in bulk up to capacity.
	TypeRaffle
	// TypeWhitelist listings sell allowlist spots in bulk up to capacity.
	TypeWhitelist
)

// Valid reports whether the type belongs to the closed enumeration.
func (t ListingType) Valid() bool {
	return t <= TypeWhitelist
}

func (t ListingType) String() string {
	switch t {
	case TypeUnique:
		return "unique"
	case TypeRaffle:
		return "raffle"
	case TypeWhitelist:
		return "whitelist"
	default:
		return "unknown"
	}
}

// Metadata carries the display fields attached to a listing. The engine stores
// them verbatim and never interprets the contents.
type Metadata struct {
	ImageURL       string `json:"imageUrl"`
	WebsiteURL     string `json:"websiteUrl"`
	DiscordURL     string `json:"discordUrl"`
	TwitterURL     string `json:"twitterUrl"`
	MarketplaceURL string `json:"marketplaceUrl"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	EndDate        string `json:"endDate"`
}

// Listing is a sellable offer with capacity, price, and metadata. A listing
// has no stored status field: it is active, closed, or deleted depending on
// which index (if any) holds its ID.
type Listing struct {
	ID              uint64          `json:"id"`
	Type            ListingType     `json:"type"`
	Price           *big.Int        `json:"price"`
	TotalEntrants   uint64          `json:"totalEntrants"`
	CurrentEntrants uint64          `json:"currentEntrants"`
	Metadata        Metadata        `json:"metadata"`
	Redeemed        map[string]bool `json:"redeemed,omitempty"`
	CreatedAt       int64           `json:"createdAt"`
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	}
	if l.Redeemed != nil {
		clone.Redeemed = make(map[string]bool, len(l.Redeemed))
		for k, v := range l.Redeemed {
			clone.Redeemed[k] = v
		}
	}
	return &clone
}

// Remaining reports how many entrant slots are still available for sale.
func (l *Listing) Remaining() uint64 {
	if l == nil || l.CurrentEntrants >= l.TotalEntrants {
		return 0
	}
	return l.TotalEntrants - l.CurrentEntrants
}

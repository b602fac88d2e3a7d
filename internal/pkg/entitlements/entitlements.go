package entitlements

import (
	"time"

	"github.com/plclassificados/marketplace/app/models"
)

// DefaultMaxListings applies to users without an effective plan.
const DefaultMaxListings = 1

// Usage is a point-in-time view of a user's quota consumption. Reads are
// not coordinated with concurrent listing writes.
type Usage struct {
	ActiveListings    int64 `json:"active_listings"`
	MaxListings       int   `json:"max_listings"`
	FeaturedThisMonth int64 `json:"highlighted_listings"`
	MaxHighlighted    int   `json:"max_highlighted"`
}

// MaxListings returns the listing quota for plan, -1 meaning unlimited.
func MaxListings(plan *models.Plan) int {
	if plan == nil {
		return DefaultMaxListings
	}
	return plan.AdsLimit
}

// MaxHighlighted returns how many listings may be featured per calendar month.
func MaxHighlighted(plan *models.Plan) int {
	if plan == nil {
		return 0
	}
	return plan.Highlighted
}

// MonthStart returns midnight on the first day of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// NewUsage combines plan limits with the counted usage.
func NewUsage(plan *models.Plan, activeListings, featuredThisMonth int64) Usage {
	return Usage{
		ActiveListings:    activeListings,
		MaxListings:       MaxListings(plan),
		FeaturedThisMonth: featuredThisMonth,
		MaxHighlighted:    MaxHighlighted(plan),
	}
}

// CanCreateListing reports whether another active listing fits the quota.
func (u Usage) CanCreateListing() bool {
	if u.MaxListings == models.UnlimitedListings {
		return true
	}
	return u.ActiveListings < int64(u.MaxListings)
}

// CanHighlight reports whether another listing may be featured this month.
func (u Usage) CanHighlight() bool {
	return u.FeaturedThisMonth < int64(u.MaxHighlighted)
}

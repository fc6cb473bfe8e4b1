package datasource

import (
	"context"
	"time"
)

// Source reads operational campaign data. Implementations convert the
// loosely-typed storage representation into the typed records once, at this
// boundary, so callers never re-check field presence.
type Source interface {
	// Campaigns returns campaigns, optionally restricted to active ones
	// (not COMPLETE and not past their end date) and to one brand.
	Campaigns(ctx context.Context, activeOnly bool, brandID string) ([]Campaign, error)

	// CampaignInfluencers returns participation records, optionally
	// filtered by campaign and by cast status.
	CampaignInfluencers(ctx context.Context, campaignID, castStatus string) ([]CampaignInfluencer, error)

	// DeliveryEntries returns delivery records, optionally filtered by
	// status and by creation window. Zero times mean unbounded.
	DeliveryEntries(ctx context.Context, status string, from, to time.Time) ([]DeliveryEntry, error)

	// Contents returns content uploads, optionally filtered by campaign
	// and influencer.
	Contents(ctx context.Context, campaignID, influencerID string) ([]Content, error)
}

package datasource

import (
	"context"
	"sync"
	"time"
)

// InMemorySource implements Source over fixed record slices. Used in tests
// and for serving caller-supplied contexts without a database.
type InMemorySource struct {
	mu                  sync.RWMutex
	campaigns           []Campaign
	campaignInfluencers []CampaignInfluencer
	deliveryEntries     []DeliveryEntry
	contents            []Content

	// Err, when set, is returned by every read. Lets tests exercise the
	// all-or-nothing context build.
	Err error
}

// NewInMemorySource creates an empty in-memory source.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{}
}

// SetRecords replaces all record slices at once.
func (s *InMemorySource) SetRecords(campaigns []Campaign, influencers []CampaignInfluencer, deliveries []DeliveryEntry, contents []Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns = campaigns
	s.campaignInfluencers = influencers
	s.deliveryEntries = deliveries
	s.contents = contents
}

// Campaigns returns campaigns matching the filters, in insertion order.
func (s *InMemorySource) Campaigns(ctx context.Context, activeOnly bool, brandID string) ([]Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	now := time.Now()
	var out []Campaign
	for _, c := range s.campaigns {
		if activeOnly {
			if c.Status == "COMPLETE" {
				continue
			}
			if c.EndDate != nil && c.EndDate.Before(now.Truncate(24*time.Hour)) {
				continue
			}
		}
		if brandID != "" && c.BrandID != brandID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// CampaignInfluencers returns participation records matching the filters.
func (s *InMemorySource) CampaignInfluencers(ctx context.Context, campaignID, castStatus string) ([]CampaignInfluencer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var out []CampaignInfluencer
	for _, ci := range s.campaignInfluencers {
		if campaignID != "" && ci.CampaignID != campaignID {
			continue
		}
		if castStatus != "" && ci.CastStatus != castStatus {
			continue
		}
		out = append(out, ci)
	}
	return out, nil
}

// DeliveryEntries returns delivery records matching the filters.
func (s *InMemorySource) DeliveryEntries(ctx context.Context, status string, from, to time.Time) ([]DeliveryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var out []DeliveryEntry
	for _, d := range s.deliveryEntries {
		if status != "" && d.Status != status {
			continue
		}
		if !from.IsZero() && (d.CreateDate == nil || d.CreateDate.Before(from)) {
			continue
		}
		if !to.IsZero() && (d.CreateDate == nil || d.CreateDate.After(to)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Contents returns content uploads matching the filters.
func (s *InMemorySource) Contents(ctx context.Context, campaignID, influencerID string) ([]Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var out []Content
	for _, c := range s.contents {
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		if influencerID != "" && c.InfluencerID != influencerID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

package engine

import (
	"sort"
	"time"

	"github.com/seedwatch/seedwatch/datasource"
)

// Predicate inspects one rule context and returns the record bundles that
// violate the rule. Predicates must treat missing or nil timestamps as "not
// yet occurred" and never error on them.
type Predicate func(rc *RuleContext, idx *contextIndex) []MatchedRecord

// defaultPredicates maps rule IDs to their implementations. Adding a rule
// means adding one function and one entry here.
func defaultPredicates() map[string]Predicate {
	return map[string]Predicate{
		"MKT_001": checkContentUploadOverdue,
		"MKT_002": checkCampaignEndingSoon,
		"MKT_003": checkDeliveryDelay,
		"MKT_004": checkHashtagCompliance,
	}
}

const (
	contentUploadGraceDays = 7
	campaignEndingSoonDays = 3
	deliveryDelayWindow    = 24 * time.Hour
)

// wholeDays truncates a duration to whole days. Truncation, not rounding:
// 7 days 23 hours is still 7 days.
func wholeDays(d time.Duration) int {
	return int(d.Hours() / 24)
}

// checkContentUploadOverdue finds COMPLETE deliveries confirmed more than
// seven whole days ago whose campaign influencer has not posted content.
func checkContentUploadOverdue(rc *RuleContext, idx *contextIndex) []MatchedRecord {
	var matched []MatchedRecord
	for i := range rc.DeliveryEntries {
		delivery := &rc.DeliveryEntries[i]
		if delivery.Status != datasource.DeliveryComplete || delivery.ConfirmDate == nil {
			continue
		}
		daysOverdue := wholeDays(rc.CurrentDate.Sub(*delivery.ConfirmDate))
		if daysOverdue <= contentUploadGraceDays {
			continue
		}

		ci, ok := idx.influencersByID[delivery.CampaignInfluencerID]
		if !ok || ci.ContentsPostDate != nil {
			continue
		}

		matched = append(matched, MatchedRecord{
			Campaign:           idx.campaignsByID[ci.CampaignID],
			CampaignInfluencer: ci,
			DeliveryEntry:      delivery,
			DaysOverdue:        daysOverdue,
		})
	}
	return sortMatches(matched)
}

// checkCampaignEndingSoon finds campaigns ending within three days that
// still have influencers without posted content.
func checkCampaignEndingSoon(rc *RuleContext, idx *contextIndex) []MatchedRecord {
	var matched []MatchedRecord
	for i := range rc.Campaigns {
		campaign := &rc.Campaigns[i]
		if campaign.EndDate == nil {
			continue
		}
		remaining := campaign.EndDate.Sub(rc.CurrentDate)
		if remaining > campaignEndingSoonDays*24*time.Hour {
			continue
		}
		daysRemaining := wholeDays(remaining)

		for _, ci := range idx.influencersByCampaign[campaign.ID] {
			if ci.ContentsPostDate != nil {
				continue
			}
			d := daysRemaining
			matched = append(matched, MatchedRecord{
				Campaign:           campaign,
				CampaignInfluencer: ci,
				DaysRemaining:      &d,
			})
		}
	}
	return sortMatches(matched)
}

// checkDeliveryDelay finds campaigns ending within a day that still have
// deliveries not yet completed, a signal to review extending the campaign.
func checkDeliveryDelay(rc *RuleContext, idx *contextIndex) []MatchedRecord {
	var matched []MatchedRecord
	for i := range rc.Campaigns {
		campaign := &rc.Campaigns[i]
		if campaign.EndDate == nil || campaign.EndDate.Sub(rc.CurrentDate) > deliveryDelayWindow {
			continue
		}

		for _, ci := range idx.influencersByCampaign[campaign.ID] {
			for _, delivery := range idx.deliveriesByCI[ci.ID] {
				if delivery.Status != datasource.DeliveryAwaitingStart && delivery.Status != datasource.DeliveryInProgress {
					continue
				}
				matched = append(matched, MatchedRecord{
					Campaign:           campaign,
					CampaignInfluencer: ci,
					DeliveryEntry:      delivery,
				})
			}
		}
	}
	return sortMatches(matched)
}

// checkHashtagCompliance finds contents whose hashtag set is missing
// required hashtags of their campaign. One match per missing hashtag, not
// per content.
func checkHashtagCompliance(rc *RuleContext, idx *contextIndex) []MatchedRecord {
	var matched []MatchedRecord
	for i := range rc.Contents {
		content := &rc.Contents[i]
		campaign, ok := idx.campaignsByID[content.CampaignID]
		if !ok || len(campaign.RequiredHashtags) == 0 {
			continue
		}

		present := make(map[string]bool, len(content.Hashtags))
		for _, tag := range content.Hashtags {
			present[tag] = true
		}
		for _, required := range campaign.RequiredHashtags {
			if present[required] {
				continue
			}
			matched = append(matched, MatchedRecord{
				Campaign:       campaign,
				Content:        content,
				MissingHashtag: required,
			})
		}
	}
	return sortMatches(matched)
}

// sortMatches orders matched records by campaign ID, then influencer ID,
// then the remaining record IDs, so alert ordering is reproducible
// regardless of data source iteration order.
func sortMatches(matched []MatchedRecord) []MatchedRecord {
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matchKey(matched[i]), matchKey(matched[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return matched
}

func matchKey(m MatchedRecord) [5]string {
	var key [5]string
	if m.Campaign != nil {
		key[0] = m.Campaign.ID
	} else if m.CampaignInfluencer != nil {
		key[0] = m.CampaignInfluencer.CampaignID
	}
	key[1] = m.influencerID()
	if m.DeliveryEntry != nil {
		key[2] = m.DeliveryEntry.ID
	}
	if m.Content != nil {
		key[3] = m.Content.ID
	}
	key[4] = m.MissingHashtag
	return key
}

package engine

import (
	"strconv"

	"github.com/seedwatch/seedwatch/datasource"
)

// MatchedRecord bundles the operational records that satisfied one rule's
// predicate, plus any derived fields. It exists only within one RuleResult.
type MatchedRecord struct {
	Campaign           *datasource.Campaign           `json:"campaign,omitempty"`
	CampaignInfluencer *datasource.CampaignInfluencer `json:"campaign_influencer,omitempty"`
	DeliveryEntry      *datasource.DeliveryEntry      `json:"delivery_entry,omitempty"`
	Content            *datasource.Content            `json:"content,omitempty"`

	DaysOverdue    int    `json:"days_overdue,omitempty"`
	DaysRemaining  *int   `json:"days_remaining,omitempty"`
	MissingHashtag string `json:"missing_hashtag,omitempty"`
}

// Fields flattens the record into template substitution values. Only fields
// backed by an actual record are present, so a template referencing an
// absent field keeps its placeholder visible in the rendered message.
func (m MatchedRecord) Fields() map[string]string {
	fields := make(map[string]string)

	if m.Campaign != nil {
		fields["campaign_id"] = m.Campaign.ID
		fields["campaign_name"] = m.Campaign.CampName
		fields["brand_id"] = m.Campaign.BrandID
	}
	if m.CampaignInfluencer != nil {
		fields["campaign_influencer_id"] = m.CampaignInfluencer.ID
		fields["influencer_id"] = m.CampaignInfluencer.InfluencerID
		if _, ok := fields["campaign_id"]; !ok {
			fields["campaign_id"] = m.CampaignInfluencer.CampaignID
		}
	}
	if m.DeliveryEntry != nil {
		fields["delivery_entry_id"] = m.DeliveryEntry.ID
		fields["tracking_number"] = m.DeliveryEntry.TrackingNumber
		if _, ok := fields["influencer_id"]; !ok {
			fields["influencer_id"] = m.DeliveryEntry.InfluencerID
		}
	}
	if m.Content != nil {
		fields["content_id"] = m.Content.ID
		fields["content_url"] = m.Content.ContentURL
		if _, ok := fields["influencer_id"]; !ok {
			fields["influencer_id"] = m.Content.InfluencerID
		}
		if _, ok := fields["campaign_id"]; !ok {
			fields["campaign_id"] = m.Content.CampaignID
		}
	}

	if m.DaysOverdue > 0 {
		fields["days_overdue"] = strconv.Itoa(m.DaysOverdue)
	}
	if m.DaysRemaining != nil {
		fields["days_remaining"] = strconv.Itoa(*m.DaysRemaining)
	}
	if m.MissingHashtag != "" {
		fields["missing_hashtag"] = m.MissingHashtag
		fields["required_hashtag"] = m.MissingHashtag
	}

	return fields
}

// influencerID returns the influencer identity to address direct messages
// to, if any record carries one.
func (m MatchedRecord) influencerID() string {
	if m.CampaignInfluencer != nil && m.CampaignInfluencer.InfluencerID != "" {
		return m.CampaignInfluencer.InfluencerID
	}
	if m.Content != nil && m.Content.InfluencerID != "" {
		return m.Content.InfluencerID
	}
	if m.DeliveryEntry != nil && m.DeliveryEntry.InfluencerID != "" {
		return m.DeliveryEntry.InfluencerID
	}
	return ""
}

// RuleResult is the per-rule outcome of one evaluation pass. A non-empty
// ErrorMessage distinguishes "rule failed to evaluate" from "rule did not
// trigger".
type RuleResult struct {
	RuleID          string          `json:"rule_id"`
	RuleName        string          `json:"rule_name"`
	Triggered       bool            `json:"triggered"`
	MatchedRecords  []MatchedRecord `json:"matched_records,omitempty"`
	ActionsExecuted []string        `json:"actions_executed,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

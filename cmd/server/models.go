package main

import (
	"fmt"
	"time"

	"github.com/seedwatch/seedwatch/datasource"
	"github.com/seedwatch/seedwatch/engine"
)

// executeRulesRequest is a caller-supplied rule context, used by tests and
// mock scenarios to evaluate rules without touching the operational source.
type executeRulesRequest struct {
	CurrentDate         *time.Time                      `json:"current_date,omitempty"`
	DeliveryEntries     []datasource.DeliveryEntry      `json:"delivery_entries"`
	CampaignInfluencers []datasource.CampaignInfluencer `json:"campaign_influencers"`
	Campaigns           []datasource.Campaign           `json:"campaigns"`
	Contents            []datasource.Content            `json:"contents"`
}

func (r executeRulesRequest) toContext() *engine.RuleContext {
	now := time.Now()
	if r.CurrentDate != nil {
		now = *r.CurrentDate
	}
	return &engine.RuleContext{
		CurrentDate:         now,
		DeliveryEntries:     r.DeliveryEntries,
		CampaignInfluencers: r.CampaignInfluencers,
		Campaigns:           r.Campaigns,
		Contents:            r.Contents,
	}
}

// mockScenario builds canned data that makes exactly one rule trigger.
func mockScenario(scenario string, now time.Time) (*executeRulesRequest, error) {
	switch scenario {
	case "content_overdue":
		confirmed := now.AddDate(0, 0, -10)
		return &executeRulesRequest{
			CurrentDate: &now,
			DeliveryEntries: []datasource.DeliveryEntry{{
				ID:                   "del_001",
				Status:               datasource.DeliveryComplete,
				ConfirmDate:          &confirmed,
				CampaignInfluencerID: "ci_001",
			}},
			CampaignInfluencers: []datasource.CampaignInfluencer{{
				ID:           "ci_001",
				CampaignID:   "camp_001",
				InfluencerID: "inf_001",
			}},
			Campaigns: []datasource.Campaign{{
				ID:       "camp_001",
				CampName: "여름 신상 캠페인",
				EndDate:  timePtr(now.AddDate(0, 0, 28)),
			}},
		}, nil

	case "campaign_ending":
		return &executeRulesRequest{
			CurrentDate: &now,
			Campaigns: []datasource.Campaign{{
				ID:       "camp_002",
				CampName: "가을 컬렉션 캠페인",
				EndDate:  timePtr(now.AddDate(0, 0, 2)),
			}},
			CampaignInfluencers: []datasource.CampaignInfluencer{{
				ID:           "ci_002",
				CampaignID:   "camp_002",
				InfluencerID: "inf_002",
			}},
		}, nil

	case "delivery_delay":
		return &executeRulesRequest{
			CurrentDate: &now,
			Campaigns: []datasource.Campaign{{
				ID:       "camp_003",
				CampName: "긴급 프로모션",
				EndDate:  timePtr(now.Add(20 * time.Hour)),
			}},
			DeliveryEntries: []datasource.DeliveryEntry{{
				ID:                   "del_003",
				Status:               datasource.DeliveryInProgress,
				CampaignInfluencerID: "ci_003",
			}},
			CampaignInfluencers: []datasource.CampaignInfluencer{{
				ID:               "ci_003",
				CampaignID:       "camp_003",
				InfluencerID:     "inf_003",
				ContentsPostDate: timePtr(now.AddDate(0, 0, -1)),
			}},
		}, nil

	case "hashtag_missing":
		return &executeRulesRequest{
			CurrentDate: &now,
			Campaigns: []datasource.Campaign{{
				ID:               "camp_004",
				CampName:         "브랜드 협찬 캠페인",
				EndDate:          timePtr(now.AddDate(0, 0, 14)),
				RequiredHashtags: []string{"#브랜드협찬", "#신상품"},
			}},
			Contents: []datasource.Content{{
				ID:           "content_001",
				CampaignID:   "camp_004",
				InfluencerID: "inf_004",
				Hashtags:     []string{"#신상품"},
			}},
		}, nil
	}
	return nil, fmt.Errorf("unsupported scenario: %s", scenario)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

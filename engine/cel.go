package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/seedwatch/seedwatch/datasource"
)

// Rules without a registered predicate may carry a CEL expression instead.
// The expression is evaluated once per campaign influencer, with the joined
// campaign, the influencer's most recent delivery entry and most recent
// content bound as map variables. A true result emits one matched record.

// newCELEnv declares the variables an extension rule expression can
// reference. Map-shaped facts keep the environment schema-free.
func newCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("campaign", cel.DynType),
		cel.Variable("campaign_influencer", cel.DynType),
		cel.Variable("delivery_entry", cel.DynType),
		cel.Variable("content", cel.DynType),
		cel.Variable("current_date", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// compileExpression compiles one rule expression to a CEL program. The cost
// limit prevents runaway expressions from stalling an evaluation pass.
func compileExpression(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prog, err := env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// evalExpression runs a compiled extension rule over every campaign
// influencer in the context. Non-boolean results are treated as false.
func evalExpression(prog cel.Program, rc *RuleContext, idx *contextIndex) ([]MatchedRecord, error) {
	var matched []MatchedRecord
	for i := range rc.CampaignInfluencers {
		ci := &rc.CampaignInfluencers[i]
		campaign := idx.campaignsByID[ci.CampaignID]
		delivery := latestDelivery(idx.deliveriesByCI[ci.ID])
		content := latestContent(rc, ci)

		facts := map[string]any{
			"campaign":            campaignFacts(campaign),
			"campaign_influencer": influencerFacts(ci),
			"delivery_entry":      deliveryFacts(delivery),
			"content":             contentFacts(content),
			"current_date":        rc.CurrentDate,
		}

		out, _, err := prog.Eval(facts)
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed for campaign influencer %s: %w", ci.ID, err)
		}
		if triggered, ok := out.Value().(bool); !ok || !triggered {
			continue
		}

		matched = append(matched, MatchedRecord{
			Campaign:           campaign,
			CampaignInfluencer: ci,
			DeliveryEntry:      delivery,
			Content:            content,
		})
	}
	return sortMatches(matched), nil
}

func latestDelivery(deliveries []*datasource.DeliveryEntry) *datasource.DeliveryEntry {
	var latest *datasource.DeliveryEntry
	for _, d := range deliveries {
		if latest == nil || timeAfter(d.CreateDate, latest.CreateDate) {
			latest = d
		}
	}
	return latest
}

func latestContent(rc *RuleContext, ci *datasource.CampaignInfluencer) *datasource.Content {
	var latest *datasource.Content
	for i := range rc.Contents {
		c := &rc.Contents[i]
		if c.CampaignID != ci.CampaignID || c.InfluencerID != ci.InfluencerID {
			continue
		}
		if latest == nil || timeAfter(c.PostDate, latest.PostDate) {
			latest = c
		}
	}
	return latest
}

func timeAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func campaignFacts(c *datasource.Campaign) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	facts := map[string]any{
		"id":         c.ID,
		"camp_code":  c.CampCode,
		"camp_nm":    c.CampName,
		"status":     c.Status,
		"target_cnt": c.TargetCnt,
		"brand_id":   c.BrandID,
		"channel_id": c.ChannelID,
	}
	addTime(facts, "start_date", c.StartDate)
	addTime(facts, "end_date", c.EndDate)
	tags := make([]string, len(c.RequiredHashtags))
	copy(tags, c.RequiredHashtags)
	sort.Strings(tags)
	facts["required_hashtags"] = tags
	return facts
}

func influencerFacts(ci *datasource.CampaignInfluencer) map[string]any {
	facts := map[string]any{
		"id":                ci.ID,
		"cast_status":       ci.CastStatus,
		"invitation_status": ci.InvitationStatus,
		"progress":          ci.Progress,
		"brand_id":          ci.BrandID,
		"campaign_id":       ci.CampaignID,
		"influencer_id":     ci.InfluencerID,
	}
	addTime(facts, "cast_msg_dt", ci.CastMsgDate)
	addTime(facts, "cast_res_date", ci.CastResDate)
	addTime(facts, "contents_post_dt", ci.ContentsPostDate)
	addTime(facts, "delivery_dt", ci.DeliveryDate)
	return facts
}

func deliveryFacts(d *datasource.DeliveryEntry) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	facts := map[string]any{
		"id":                     d.ID,
		"status":                 d.Status,
		"tracking_number":        d.TrackingNumber,
		"tracking_status":        d.TrackingStatus,
		"qty":                    d.Qty,
		"brand_id":               d.BrandID,
		"campaign_influencer_id": d.CampaignInfluencerID,
		"influencer_id":          d.InfluencerID,
	}
	addTime(facts, "create_dt", d.CreateDate)
	addTime(facts, "delivery_confirm_dt", d.ConfirmDate)
	addTime(facts, "delivery_req_dt", d.RequestDate)
	return facts
}

func contentFacts(c *datasource.Content) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	facts := map[string]any{
		"id":            c.ID,
		"campaign_id":   c.CampaignID,
		"influencer_id": c.InfluencerID,
		"content_url":   c.ContentURL,
		"hashtags":      append([]string(nil), c.Hashtags...),
		"like_count":    c.LikeCount,
		"comment_count": c.CommentCount,
	}
	addTime(facts, "post_date", c.PostDate)
	return facts
}

// addTime only binds timestamps that exist, so expressions use
// `has(campaign.end_date)` rather than null checks.
func addTime(facts map[string]any, key string, t *time.Time) {
	if t != nil {
		facts[key] = *t
	}
}

package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seedwatch/seedwatch/datasource"
)

// RuleContext is an immutable snapshot of operational records used as input
// to one evaluation pass. It is safe to share by reference across
// concurrent rule evaluations once built.
type RuleContext struct {
	CurrentDate         time.Time                       `json:"current_date"`
	DeliveryEntries     []datasource.DeliveryEntry      `json:"delivery_entries"`
	CampaignInfluencers []datasource.CampaignInfluencer `json:"campaign_influencers"`
	Campaigns           []datasource.Campaign           `json:"campaigns"`
	Contents            []datasource.Content            `json:"contents"`
}

// ContextBuilder assembles rule contexts from the operational data source.
type ContextBuilder struct {
	source datasource.Source
	now    func() time.Time
}

// NewContextBuilder creates a builder reading from source.
func NewContextBuilder(source datasource.Source) *ContextBuilder {
	return &ContextBuilder{source: source, now: time.Now}
}

// Build issues the four reads concurrently and assembles them into one
// context stamped with the build time. The build is all-or-nothing: if any
// read fails no context is returned. A silently empty list would make every
// dependent rule a false negative, which is indistinguishable from "no
// violations".
func (b *ContextBuilder) Build(ctx context.Context, lookbackDays int) (*RuleContext, error) {
	now := b.now()
	cutoff := now.AddDate(0, 0, -lookbackDays)

	rc := &RuleContext{CurrentDate: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		campaigns, err := b.source.Campaigns(gctx, true, "")
		if err != nil {
			return fmt.Errorf("failed to read campaigns: %w", err)
		}
		rc.Campaigns = campaigns
		return nil
	})
	g.Go(func() error {
		influencers, err := b.source.CampaignInfluencers(gctx, "", "")
		if err != nil {
			return fmt.Errorf("failed to read campaign influencers: %w", err)
		}
		rc.CampaignInfluencers = influencers
		return nil
	})
	g.Go(func() error {
		deliveries, err := b.source.DeliveryEntries(gctx, "", cutoff, time.Time{})
		if err != nil {
			return fmt.Errorf("failed to read delivery entries: %w", err)
		}
		rc.DeliveryEntries = deliveries
		return nil
	})
	g.Go(func() error {
		contents, err := b.source.Contents(gctx, "", "")
		if err != nil {
			return fmt.Errorf("failed to read contents: %w", err)
		}
		rc.Contents = contents
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rule context build failed: %w", err)
	}
	return rc, nil
}

// contextIndex holds the id-keyed lookups the predicates join on. Built once
// per evaluation pass so predicates stay linear scans.
type contextIndex struct {
	campaignsByID         map[string]*datasource.Campaign
	influencersByID       map[string]*datasource.CampaignInfluencer
	influencersByCampaign map[string][]*datasource.CampaignInfluencer
	deliveriesByCI        map[string][]*datasource.DeliveryEntry
}

func newContextIndex(rc *RuleContext) *contextIndex {
	idx := &contextIndex{
		campaignsByID:         make(map[string]*datasource.Campaign, len(rc.Campaigns)),
		influencersByID:       make(map[string]*datasource.CampaignInfluencer, len(rc.CampaignInfluencers)),
		influencersByCampaign: make(map[string][]*datasource.CampaignInfluencer),
		deliveriesByCI:        make(map[string][]*datasource.DeliveryEntry),
	}
	for i := range rc.Campaigns {
		c := &rc.Campaigns[i]
		idx.campaignsByID[c.ID] = c
	}
	for i := range rc.CampaignInfluencers {
		ci := &rc.CampaignInfluencers[i]
		idx.influencersByID[ci.ID] = ci
		idx.influencersByCampaign[ci.CampaignID] = append(idx.influencersByCampaign[ci.CampaignID], ci)
	}
	for i := range rc.DeliveryEntries {
		d := &rc.DeliveryEntries[i]
		idx.deliveriesByCI[d.CampaignInfluencerID] = append(idx.deliveriesByCI[d.CampaignInfluencerID], d)
	}
	return idx
}

package datasource

import (
	"context"
	"errors"
	"testing"
	"time"
)

func tp(t time.Time) *time.Time { return &t }

func TestInMemoryCampaignsFilters(t *testing.T) {
	now := time.Now()
	source := NewInMemorySource()
	source.SetRecords([]Campaign{
		{ID: "camp_active", Status: "ACTIVE", BrandID: "brand_a"},
		{ID: "camp_done", Status: "COMPLETE", BrandID: "brand_a"},
		{ID: "camp_expired", Status: "ACTIVE", EndDate: tp(now.AddDate(0, 0, -30))},
		{ID: "camp_other_brand", Status: "ACTIVE", BrandID: "brand_b"},
	}, nil, nil, nil)

	all, err := source.Campaigns(context.Background(), false, "")
	if err != nil {
		t.Fatalf("Campaigns() failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("unfiltered returned %d campaigns, want 4", len(all))
	}

	active, err := source.Campaigns(context.Background(), true, "")
	if err != nil {
		t.Fatalf("Campaigns(activeOnly) failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("activeOnly returned %d campaigns, want 2", len(active))
	}
	for _, c := range active {
		if c.ID == "camp_done" || c.ID == "camp_expired" {
			t.Errorf("activeOnly included %s", c.ID)
		}
	}

	brand, err := source.Campaigns(context.Background(), true, "brand_a")
	if err != nil {
		t.Fatalf("Campaigns(brand) failed: %v", err)
	}
	if len(brand) != 1 || brand[0].ID != "camp_active" {
		t.Errorf("brand filter returned %+v", brand)
	}
}

func TestInMemoryCampaignInfluencersFilters(t *testing.T) {
	source := NewInMemorySource()
	source.SetRecords(nil, []CampaignInfluencer{
		{ID: "ci_001", CampaignID: "camp_001", CastStatus: CastAccepted},
		{ID: "ci_002", CampaignID: "camp_001", CastStatus: CastDeclined},
		{ID: "ci_003", CampaignID: "camp_002", CastStatus: CastAccepted},
	}, nil, nil)

	got, err := source.CampaignInfluencers(context.Background(), "camp_001", CastAccepted)
	if err != nil {
		t.Fatalf("CampaignInfluencers() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ci_001" {
		t.Errorf("filtered influencers = %+v", got)
	}
}

func TestInMemoryDeliveryEntriesWindow(t *testing.T) {
	now := time.Now()
	source := NewInMemorySource()
	source.SetRecords(nil, nil, []DeliveryEntry{
		{ID: "del_recent", CreateDate: tp(now.AddDate(0, 0, -5)), Status: DeliveryComplete},
		{ID: "del_old", CreateDate: tp(now.AddDate(0, 0, -60)), Status: DeliveryComplete},
		{ID: "del_undated", Status: DeliveryComplete},
	}, nil)

	from := now.AddDate(0, 0, -30)
	got, err := source.DeliveryEntries(context.Background(), "", from, time.Time{})
	if err != nil {
		t.Fatalf("DeliveryEntries() failed: %v", err)
	}
	// Undated records cannot be placed in the window and are excluded.
	if len(got) != 1 || got[0].ID != "del_recent" {
		t.Errorf("windowed entries = %+v, want only del_recent", got)
	}

	unbounded, err := source.DeliveryEntries(context.Background(), "", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("DeliveryEntries() failed: %v", err)
	}
	if len(unbounded) != 3 {
		t.Errorf("unbounded returned %d entries, want 3", len(unbounded))
	}
}

func TestInMemoryContentsFilters(t *testing.T) {
	source := NewInMemorySource()
	source.SetRecords(nil, nil, nil, []Content{
		{ID: "content_001", CampaignID: "camp_001", InfluencerID: "inf_001"},
		{ID: "content_002", CampaignID: "camp_001", InfluencerID: "inf_002"},
		{ID: "content_003", CampaignID: "camp_002", InfluencerID: "inf_001"},
	})

	got, err := source.Contents(context.Background(), "camp_001", "inf_001")
	if err != nil {
		t.Fatalf("Contents() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "content_001" {
		t.Errorf("filtered contents = %+v", got)
	}
}

func TestInMemoryErrInjection(t *testing.T) {
	source := NewInMemorySource()
	source.Err = errors.New("injected")

	if _, err := source.Campaigns(context.Background(), false, ""); err == nil {
		t.Error("Campaigns() should return the injected error")
	}
	if _, err := source.Contents(context.Background(), "", ""); err == nil {
		t.Error("Contents() should return the injected error")
	}
}

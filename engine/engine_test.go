package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/seedwatch/seedwatch/datasource"
	"github.com/seedwatch/seedwatch/ontology"
)

// staticRules is a RuleSource fixture serving a fixed rule list.
type staticRules []ontology.BusinessRule

func (r staticRules) BusinessRules(priority ontology.Priority) []ontology.BusinessRule {
	var out []ontology.BusinessRule
	for _, rule := range r {
		if priority != "" && rule.Priority != priority {
			continue
		}
		out = append(out, rule)
	}
	return out
}

func overdueContext() *RuleContext {
	return &RuleContext{
		CurrentDate: testNow,
		DeliveryEntries: []datasource.DeliveryEntry{{
			ID:                   "del_001",
			Status:               datasource.DeliveryComplete,
			ConfirmDate:          tp(testNow.AddDate(0, 0, -10)),
			CampaignInfluencerID: "ci_001",
		}},
		CampaignInfluencers: []datasource.CampaignInfluencer{{
			ID:           "ci_001",
			CampaignID:   "camp_001",
			InfluencerID: "inf_001",
		}},
		Campaigns: []datasource.Campaign{{ID: "camp_001", CampName: "camp one"}},
	}
}

func TestExecuteAllRulesTriggersAndDispatches(t *testing.T) {
	sink := &recordingSink{}
	eng, err := NewEngine(staticRules{testRule()}, nil, sink, DispatcherConfig{SendTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	results, err := eng.ExecuteAllRules(context.Background(), overdueContext())
	if err != nil {
		t.Fatalf("ExecuteAllRules() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if !r.Triggered {
		t.Fatal("rule should have triggered")
	}
	if len(r.MatchedRecords) != 1 {
		t.Errorf("got %d matched records, want 1", len(r.MatchedRecords))
	}
	if len(r.ActionsExecuted) != 2 {
		t.Errorf("ActionsExecuted = %v", r.ActionsExecuted)
	}
	if len(sink.staff) != 1 || sink.staff[0] != "overdue 10 days on camp_001" {
		t.Errorf("staff alerts = %v", sink.staff)
	}
}

func TestExecuteAllRulesNotTriggered(t *testing.T) {
	eng, err := NewEngine(staticRules{testRule()}, nil, &recordingSink{}, DispatcherConfig{})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	results, err := eng.ExecuteAllRules(context.Background(), &RuleContext{CurrentDate: testNow})
	if err != nil {
		t.Fatalf("ExecuteAllRules() failed: %v", err)
	}
	if results[0].Triggered || results[0].ErrorMessage != "" {
		t.Errorf("result = %+v, want quiet non-trigger", results[0])
	}
}

func TestExecuteAllRulesPanicIsolation(t *testing.T) {
	rules := staticRules{
		{ID: "TST_001", Name: "Panicking rule", Priority: ontology.PriorityLow},
		testRule(),
	}
	sink := &recordingSink{}
	eng, err := NewEngine(rules, nil, sink, DispatcherConfig{SendTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	eng.RegisterPredicate("TST_001", func(rc *RuleContext, idx *contextIndex) []MatchedRecord {
		panic("predicate exploded")
	})

	results, err := eng.ExecuteAllRules(context.Background(), overdueContext())
	if err != nil {
		t.Fatalf("ExecuteAllRules() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results[0].Triggered {
		t.Error("panicked rule must not report triggered")
	}
	if !strings.Contains(results[0].ErrorMessage, "panicked") {
		t.Errorf("panicked rule error = %q", results[0].ErrorMessage)
	}
	if !results[1].Triggered {
		t.Error("later rule should still evaluate and trigger")
	}
	if len(sink.staff) != 1 {
		t.Errorf("staff alerts = %v", sink.staff)
	}
}

func TestExecuteAllRulesPartialOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rules := staticRules{
		{ID: "TST_001", Name: "Cancelling rule", Priority: ontology.PriorityLow},
		testRule(),
	}
	eng, err := NewEngine(rules, nil, &recordingSink{}, DispatcherConfig{})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	eng.RegisterPredicate("TST_001", func(rc *RuleContext, idx *contextIndex) []MatchedRecord {
		cancel()
		return nil
	})

	results, err := eng.ExecuteAllRules(ctx, overdueContext())
	if err == nil {
		t.Fatal("cancelled pass should return an error")
	}
	if !strings.Contains(err.Error(), "incomplete") {
		t.Errorf("error = %v, want incomplete-pass marker", err)
	}
	// The first rule completed before the cancellation took effect.
	if len(results) != 1 {
		t.Errorf("got %d partial results, want 1", len(results))
	}
}

func TestExpressionRuleFallback(t *testing.T) {
	rules := staticRules{{
		ID:                 "EXT_001",
		Name:               "Stalled casting",
		Priority:           ontology.PriorityMedium,
		Expression:         `campaign_influencer.cast_status == "AWAITING_RESPONSE"`,
		StaffAlertTemplate: "casting stalled for {influencer_id}",
	}}
	sink := &recordingSink{}
	eng, err := NewEngine(rules, nil, sink, DispatcherConfig{SendTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	rc := &RuleContext{
		CurrentDate: testNow,
		Campaigns:   []datasource.Campaign{{ID: "camp_001", Status: "ACTIVE"}},
		CampaignInfluencers: []datasource.CampaignInfluencer{
			{ID: "ci_001", CampaignID: "camp_001", InfluencerID: "inf_001", CastStatus: datasource.CastAwaitingResponse},
			{ID: "ci_002", CampaignID: "camp_001", InfluencerID: "inf_002", CastStatus: datasource.CastAccepted},
		},
	}

	results, err := eng.ExecuteAllRules(context.Background(), rc)
	if err != nil {
		t.Fatalf("ExecuteAllRules() failed: %v", err)
	}
	if !results[0].Triggered {
		t.Fatal("expression rule should have triggered")
	}
	if len(results[0].MatchedRecords) != 1 {
		t.Fatalf("got %d matches, want 1", len(results[0].MatchedRecords))
	}
	if got := results[0].MatchedRecords[0].CampaignInfluencer.InfluencerID; got != "inf_001" {
		t.Errorf("matched influencer = %s, want inf_001", got)
	}
	if len(sink.staff) != 1 || sink.staff[0] != "casting stalled for inf_001" {
		t.Errorf("staff alerts = %v", sink.staff)
	}
}

func TestNewEngineRejectsBadExpression(t *testing.T) {
	rules := staticRules{{
		ID:         "EXT_001",
		Name:       "Broken",
		Priority:   ontology.PriorityLow,
		Expression: `campaign.status ==`,
	}}
	if _, err := NewEngine(rules, nil, &recordingSink{}, DispatcherConfig{}); err == nil {
		t.Fatal("NewEngine() should reject an uncompilable expression")
	}
}

func TestRuleWithoutPredicateOrExpression(t *testing.T) {
	rules := staticRules{{ID: "TST_099", Name: "Documentation only", Priority: ontology.PriorityLow}}
	eng, err := NewEngine(rules, nil, &recordingSink{}, DispatcherConfig{})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	results, err := eng.ExecuteAllRules(context.Background(), overdueContext())
	if err != nil {
		t.Fatalf("ExecuteAllRules() failed: %v", err)
	}
	if results[0].Triggered || results[0].ErrorMessage != "" {
		t.Errorf("result = %+v, want quiet non-trigger", results[0])
	}
}

func TestExecuteRulesWithLiveDataRequiresSource(t *testing.T) {
	eng, err := NewEngine(staticRules{testRule()}, nil, &recordingSink{}, DispatcherConfig{})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	if _, err := eng.ExecuteRulesWithLiveData(context.Background(), 30); err == nil {
		t.Fatal("live evaluation without a data source should fail")
	}
}

func TestExecuteRulesWithLiveData(t *testing.T) {
	source := datasource.NewInMemorySource()
	source.SetRecords(
		[]datasource.Campaign{{ID: "camp_001", CampName: "camp one"}},
		[]datasource.CampaignInfluencer{{ID: "ci_001", CampaignID: "camp_001", InfluencerID: "inf_001"}},
		[]datasource.DeliveryEntry{{
			ID:                   "del_001",
			Status:               datasource.DeliveryComplete,
			CreateDate:           tp(time.Now().AddDate(0, 0, -10)),
			ConfirmDate:          tp(time.Now().AddDate(0, 0, -10)),
			CampaignInfluencerID: "ci_001",
		}},
		nil,
	)

	sink := &recordingSink{}
	eng, err := NewEngine(staticRules{testRule()}, source, sink, DispatcherConfig{SendTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	results, err := eng.ExecuteRulesWithLiveData(context.Background(), 30)
	if err != nil {
		t.Fatalf("ExecuteRulesWithLiveData() failed: %v", err)
	}
	if !results[0].Triggered {
		t.Fatal("rule should have triggered on live data")
	}
	if len(sink.staff) != 1 {
		t.Errorf("staff alerts = %v", sink.staff)
	}
}

//go:build integration

package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL testcontainer and applies the schema.
func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { postgres.Terminate(ctx) })

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../migrations/000001_operational_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func seedTestData(t *testing.T, db *sql.DB, now time.Time) {
	t.Helper()

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("seed failed: %v\nquery: %s", err, query)
		}
	}

	mustExec(`INSERT INTO campaign (id, camp_code, camp_nm, start_date, end_date, status, brand_id, campaign_hashtags)
		VALUES ('camp_001', 'C001', 'summer drop', $1, $2, 'ACTIVE', 'brand_a', $3)`,
		now.AddDate(0, 0, -20), now.AddDate(0, 0, 10), pq.StringArray{"#브랜드협찬", "#신상품"})
	mustExec(`INSERT INTO campaign (id, camp_nm, start_date, end_date, status, brand_id, campaign_hashtags)
		VALUES ('camp_002', 'finished run', $1, $2, 'COMPLETE', 'brand_b', '{}')`,
		now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))

	mustExec(`INSERT INTO campaign_influencer (id, campaign_id, influencer_id, cast_status, cast_msg_dt)
		VALUES ('ci_001', 'camp_001', 'inf_001', 'ACCEPTED', $1)`, now.AddDate(0, 0, -15))
	mustExec(`INSERT INTO campaign_influencer (id, campaign_id, influencer_id, cast_status, contents_post_dt)
		VALUES ('ci_002', 'camp_001', 'inf_002', 'DECLINED', $1)`, now.AddDate(0, 0, -3))

	mustExec(`INSERT INTO delivery_entry (id, campaign_influencer_id, status, create_dt, delivery_confirm_dt, influencer_id)
		VALUES ('del_001', 'ci_001', 'COMPLETE', $1, $2, 'inf_001')`,
		now.AddDate(0, 0, -10), now.AddDate(0, 0, -9))
	mustExec(`INSERT INTO delivery_entry (id, campaign_influencer_id, status, create_dt)
		VALUES ('del_002', 'ci_002', 'DELIVERY_IN_PROGRESS', $1)`, now.AddDate(0, 0, -45))

	mustExec(`INSERT INTO content (id, campaign_id, influencer_id, hashtags, post_date, like_count)
		VALUES ('content_001', 'camp_001', 'inf_002', $1, $2, 120)`,
		pq.StringArray{"#신상품"}, now.AddDate(0, 0, -3))
}

func TestPostgresSourceReads(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	seedTestData(t, db, now)

	source := NewPostgresSource(db)
	ctx := context.Background()

	t.Run("campaigns active only", func(t *testing.T) {
		campaigns, err := source.Campaigns(ctx, true, "")
		if err != nil {
			t.Fatalf("Campaigns() failed: %v", err)
		}
		if len(campaigns) != 1 || campaigns[0].ID != "camp_001" {
			t.Fatalf("active campaigns = %+v, want only camp_001", campaigns)
		}
		c := campaigns[0]
		if len(c.RequiredHashtags) != 2 || c.RequiredHashtags[0] != "#브랜드협찬" {
			t.Errorf("hashtags round-trip = %v", c.RequiredHashtags)
		}
		if c.EndDate == nil {
			t.Error("end_date should be set")
		}
	})

	t.Run("campaigns by brand", func(t *testing.T) {
		campaigns, err := source.Campaigns(ctx, false, "brand_b")
		if err != nil {
			t.Fatalf("Campaigns() failed: %v", err)
		}
		if len(campaigns) != 1 || campaigns[0].ID != "camp_002" {
			t.Errorf("brand_b campaigns = %+v", campaigns)
		}
	})

	t.Run("campaign influencers", func(t *testing.T) {
		influencers, err := source.CampaignInfluencers(ctx, "camp_001", "")
		if err != nil {
			t.Fatalf("CampaignInfluencers() failed: %v", err)
		}
		if len(influencers) != 2 {
			t.Fatalf("got %d influencers, want 2", len(influencers))
		}
		byID := map[string]CampaignInfluencer{}
		for _, ci := range influencers {
			byID[ci.ID] = ci
		}
		if byID["ci_001"].ContentsPostDate != nil {
			t.Error("ci_001 should have no contents_post_dt")
		}
		if byID["ci_002"].ContentsPostDate == nil {
			t.Error("ci_002 should have a contents_post_dt")
		}

		accepted, err := source.CampaignInfluencers(ctx, "camp_001", "ACCEPTED")
		if err != nil {
			t.Fatalf("CampaignInfluencers(cast) failed: %v", err)
		}
		if len(accepted) != 1 || accepted[0].InfluencerID != "inf_001" {
			t.Errorf("accepted influencers = %+v", accepted)
		}
	})

	t.Run("delivery entries window", func(t *testing.T) {
		entries, err := source.DeliveryEntries(ctx, "", now.AddDate(0, 0, -30), time.Time{})
		if err != nil {
			t.Fatalf("DeliveryEntries() failed: %v", err)
		}
		if len(entries) != 1 || entries[0].ID != "del_001" {
			t.Fatalf("windowed entries = %+v, want only del_001", entries)
		}
		if entries[0].ConfirmDate == nil {
			t.Error("delivery_confirm_dt should be set")
		}
	})

	t.Run("contents", func(t *testing.T) {
		contents, err := source.Contents(ctx, "camp_001", "inf_002")
		if err != nil {
			t.Fatalf("Contents() failed: %v", err)
		}
		if len(contents) != 1 || contents[0].ID != "content_001" {
			t.Fatalf("contents = %+v", contents)
		}
		if contents[0].LikeCount != 120 {
			t.Errorf("like_count = %d", contents[0].LikeCount)
		}
	})
}

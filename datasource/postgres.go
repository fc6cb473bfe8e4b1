package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// PostgresSource implements Source against the operational warehouse schema
// (see migrations/). All reads are read-only.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a Source backed by db.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Campaigns returns campaigns ordered by start date, newest first.
func (s *PostgresSource) Campaigns(ctx context.Context, activeOnly bool, brandID string) ([]Campaign, error) {
	query := `
		SELECT id, camp_code, camp_nm, start_date, end_date, status,
		       target_cnt, brand_id, channel_id, campaign_hashtags
		FROM campaign
		WHERE 1=1`
	var args []any

	if activeOnly {
		query += " AND status != 'COMPLETE' AND end_date >= CURRENT_DATE"
	}
	if brandID != "" {
		args = append(args, brandID)
		query += " AND brand_id = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY start_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		var c Campaign
		var campCode, campName, status, brand, channel sql.NullString
		var startDate, endDate sql.NullTime
		var targetCnt sql.NullInt64
		var hashtags pq.StringArray
		if err := rows.Scan(&c.ID, &campCode, &campName, &startDate, &endDate,
			&status, &targetCnt, &brand, &channel, &hashtags); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		c.CampCode = campCode.String
		c.CampName = campName.String
		c.StartDate = nullableTime(startDate)
		c.EndDate = nullableTime(endDate)
		c.Status = status.String
		c.TargetCnt = int(targetCnt.Int64)
		c.BrandID = brand.String
		c.ChannelID = channel.String
		c.RequiredHashtags = []string(hashtags)
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return campaigns, nil
}

// CampaignInfluencers returns participation records ordered by cast message
// date, newest first.
func (s *PostgresSource) CampaignInfluencers(ctx context.Context, campaignID, castStatus string) ([]CampaignInfluencer, error) {
	query := `
		SELECT id, cast_msg_dt, cast_res_date, cast_status, contents_post_dt,
		       delivery_dt, invitation_status, progress, brand_id, campaign_id,
		       channel_account_id, influencer_id, rep_contents_id
		FROM campaign_influencer
		WHERE 1=1`
	var args []any

	if campaignID != "" {
		args = append(args, campaignID)
		query += " AND campaign_id = $" + strconv.Itoa(len(args))
	}
	if castStatus != "" {
		args = append(args, castStatus)
		query += " AND cast_status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY cast_msg_dt DESC NULLS LAST"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign influencers: %w", err)
	}
	defer rows.Close()

	var influencers []CampaignInfluencer
	for rows.Next() {
		var ci CampaignInfluencer
		var castMsg, castRes, postDate, deliveryDate sql.NullTime
		var castStatus, invitation, progress, brand, channelAccount, influencer, repContents sql.NullString
		if err := rows.Scan(&ci.ID, &castMsg, &castRes, &castStatus, &postDate,
			&deliveryDate, &invitation, &progress, &brand, &ci.CampaignID,
			&channelAccount, &influencer, &repContents); err != nil {
			return nil, fmt.Errorf("failed to scan campaign influencer: %w", err)
		}
		ci.CastMsgDate = nullableTime(castMsg)
		ci.CastResDate = nullableTime(castRes)
		ci.CastStatus = castStatus.String
		ci.ContentsPostDate = nullableTime(postDate)
		ci.DeliveryDate = nullableTime(deliveryDate)
		ci.InvitationStatus = invitation.String
		ci.Progress = progress.String
		ci.BrandID = brand.String
		ci.ChannelAccountID = channelAccount.String
		ci.InfluencerID = influencer.String
		ci.RepContentsID = repContents.String
		influencers = append(influencers, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign influencers: %w", err)
	}
	return influencers, nil
}

// DeliveryEntries returns delivery records ordered by creation date, newest
// first.
func (s *PostgresSource) DeliveryEntries(ctx context.Context, status string, from, to time.Time) ([]DeliveryEntry, error) {
	query := `
		SELECT id, create_dt, delivery_confirm_dt, delivery_req_dt, status,
		       tracking_number, tracking_status, qty, brand_id,
		       campaign_influencer_id, delivery_id, influencer_id
		FROM delivery_entry
		WHERE 1=1`
	var args []any

	if status != "" {
		args = append(args, status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if !from.IsZero() {
		args = append(args, from)
		query += " AND create_dt >= $" + strconv.Itoa(len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += " AND create_dt <= $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY create_dt DESC NULLS LAST"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery entries: %w", err)
	}
	defer rows.Close()

	var entries []DeliveryEntry
	for rows.Next() {
		var d DeliveryEntry
		var createDate, confirmDate, reqDate sql.NullTime
		var status, trackingNumber, trackingStatus, brand, ci, delivery, influencer sql.NullString
		var qty sql.NullInt64
		if err := rows.Scan(&d.ID, &createDate, &confirmDate, &reqDate, &status,
			&trackingNumber, &trackingStatus, &qty, &brand,
			&ci, &delivery, &influencer); err != nil {
			return nil, fmt.Errorf("failed to scan delivery entry: %w", err)
		}
		d.CreateDate = nullableTime(createDate)
		d.ConfirmDate = nullableTime(confirmDate)
		d.RequestDate = nullableTime(reqDate)
		d.Status = status.String
		d.TrackingNumber = trackingNumber.String
		d.TrackingStatus = trackingStatus.String
		d.Qty = int(qty.Int64)
		d.BrandID = brand.String
		d.CampaignInfluencerID = ci.String
		d.DeliveryID = delivery.String
		d.InfluencerID = influencer.String
		entries = append(entries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery entries: %w", err)
	}
	return entries, nil
}

// Contents returns content uploads ordered by post date, newest first.
func (s *PostgresSource) Contents(ctx context.Context, campaignID, influencerID string) ([]Content, error) {
	query := `
		SELECT id, campaign_id, influencer_id, content_url, hashtags,
		       post_date, like_count, comment_count
		FROM content
		WHERE 1=1`
	var args []any

	if campaignID != "" {
		args = append(args, campaignID)
		query += " AND campaign_id = $" + strconv.Itoa(len(args))
	}
	if influencerID != "" {
		args = append(args, influencerID)
		query += " AND influencer_id = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY post_date DESC NULLS LAST"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	var contents []Content
	for rows.Next() {
		var c Content
		var influencer, url sql.NullString
		var postDate sql.NullTime
		var likeCount, commentCount sql.NullInt64
		var hashtags pq.StringArray
		if err := rows.Scan(&c.ID, &c.CampaignID, &influencer, &url, &hashtags,
			&postDate, &likeCount, &commentCount); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		c.InfluencerID = influencer.String
		c.ContentURL = url.String
		c.Hashtags = []string(hashtags)
		c.PostDate = nullableTime(postDate)
		c.LikeCount = int(likeCount.Int64)
		c.CommentCount = int(commentCount.Int64)
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contents: %w", err)
	}
	return contents, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

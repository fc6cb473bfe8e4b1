package datasource

import "time"

// Campaign-influencer lifecycle progress values, in order. CANCELLED is
// reachable from any non-terminal state. The rule engine only reads these;
// transitions are owned by the operational CRUD layer.
const (
	ProgressAwaitingInvitation     = "AWAITING_INVITATION"
	ProgressAwaitingResponse       = "AWAITING_RESPONSE"
	ProgressAwaitingBenefit        = "AWAITING_BENEFIT"
	ProgressAwaitingShipping       = "AWAITING_SHIPPING"
	ProgressAwaitingContentsUpload = "AWAITING_CONTENTS_UPLOAD"
	ProgressAwaitingEvaluation     = "AWAITING_EVALUATION"
	ProgressComplete               = "COMPLETE"
	ProgressCancelled              = "CANCELLED"
)

// Casting sub-state tracking invitation acceptance.
const (
	CastNotStarted       = "NOT_STARTED"
	CastAwaitingResponse = "AWAITING_RESPONSE"
	CastAccepted         = "ACCEPTED"
	CastDeclined         = "DECLINED"
)

// Delivery entry statuses.
const (
	DeliveryAwaitingStart = "AWAITING_DELIVERY_START"
	DeliveryInProgress    = "DELIVERY_IN_PROGRESS"
	DeliveryComplete      = "COMPLETE"
	DeliveryFailed        = "FAILED"
)

// Campaign is one brand marketing campaign. Timestamps are pointers because
// operational data commonly lacks them; nil means "not set".
type Campaign struct {
	ID               string     `json:"id"`
	CampCode         string     `json:"camp_code,omitempty"`
	CampName         string     `json:"camp_nm,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Status           string     `json:"status,omitempty"`
	TargetCnt        int        `json:"target_cnt,omitempty"`
	BrandID          string     `json:"brand_id,omitempty"`
	ChannelID        string     `json:"channel_id,omitempty"`
	RequiredHashtags []string   `json:"required_hashtags,omitempty"`
}

// CampaignInfluencer is the participation record linking one influencer to
// one campaign.
type CampaignInfluencer struct {
	ID               string     `json:"id"`
	CastMsgDate      *time.Time `json:"cast_msg_dt,omitempty"`
	CastResDate      *time.Time `json:"cast_res_date,omitempty"`
	CastStatus       string     `json:"cast_status,omitempty"`
	ContentsPostDate *time.Time `json:"contents_post_dt,omitempty"`
	DeliveryDate     *time.Time `json:"delivery_dt,omitempty"`
	InvitationStatus string     `json:"invitation_status,omitempty"`
	Progress         string     `json:"progress,omitempty"`
	BrandID          string     `json:"brand_id,omitempty"`
	CampaignID       string     `json:"campaign_id"`
	ChannelAccountID string     `json:"channel_account_id,omitempty"`
	InfluencerID     string     `json:"influencer_id,omitempty"`
	RepContentsID    string     `json:"rep_contents_id,omitempty"`
}

// DeliveryEntry is a shipment of seeded product for one campaign influencer.
type DeliveryEntry struct {
	ID                   string     `json:"id"`
	CreateDate           *time.Time `json:"create_dt,omitempty"`
	ConfirmDate          *time.Time `json:"delivery_confirm_dt,omitempty"`
	RequestDate          *time.Time `json:"delivery_req_dt,omitempty"`
	Status               string     `json:"status,omitempty"`
	TrackingNumber       string     `json:"tracking_number,omitempty"`
	TrackingStatus       string     `json:"tracking_status,omitempty"`
	Qty                  int        `json:"qty,omitempty"`
	BrandID              string     `json:"brand_id,omitempty"`
	CampaignInfluencerID string     `json:"campaign_influencer_id"`
	DeliveryID           string     `json:"delivery_id,omitempty"`
	InfluencerID         string     `json:"influencer_id,omitempty"`
}

// Content is a content upload posted by an influencer for a campaign.
type Content struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	InfluencerID string     `json:"influencer_id,omitempty"`
	ContentURL   string     `json:"content_url,omitempty"`
	Hashtags     []string   `json:"hashtags,omitempty"`
	PostDate     *time.Time `json:"post_date,omitempty"`
	LikeCount    int        `json:"like_count,omitempty"`
	CommentCount int        `json:"comment_count,omitempty"`
}

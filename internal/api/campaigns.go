package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultTone     = "professional"
	DefaultLanguage = "en"
)

// GenerateDraft asks the server to write an outreach email for the given
// influencers. Goal and at least one influencer id are required.
func (c *Client) GenerateDraft(ctx context.Context, req GenerateDraftRequest) (EmailDraft, error) {
	req.Goal = strings.TrimSpace(req.Goal)
	if req.Goal == "" {
		return EmailDraft{}, Validation("goal", "must not be empty")
	}
	if err := validateInfluencerIDs(req.InfluencerIDs); err != nil {
		return EmailDraft{}, err
	}
	if req.Tone == "" {
		req.Tone = DefaultTone
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}

	var out EmailDraft
	err := c.do(ctx, "generate draft", http.MethodPost, "/email-drafts/generate", nil, req, &out)
	return out, err
}

// SendCampaign queues a draft for delivery. A zero SendRateLimit lets the
// server apply its default.
func (c *Client) SendCampaign(ctx context.Context, req SendCampaignRequest) (SendCampaignResponse, error) {
	if err := ValidateID("draft_id", req.DraftID); err != nil {
		return SendCampaignResponse{}, err
	}
	if err := validateInfluencerIDs(req.InfluencerIDs); err != nil {
		return SendCampaignResponse{}, err
	}
	if req.SendRateLimit < 0 {
		return SendCampaignResponse{}, Validation("send_rate_limit", "must be at least 1")
	}

	var out SendCampaignResponse
	err := c.do(ctx, "send campaign", http.MethodPost, "/campaigns/send", nil, req, &out)
	return out, err
}

// GetCampaignEvents returns the delivery events of a campaign ordered by
// occurrence.
func (c *Client) GetCampaignEvents(ctx context.Context, campaignID string) ([]CampaignEvent, error) {
	if err := ValidateID("campaign_id", campaignID); err != nil {
		return nil, err
	}

	var out []CampaignEvent
	err := c.do(ctx, "get campaign events", http.MethodGet, "/campaigns/"+url.PathEscape(campaignID)+"/events", nil, nil, &out)
	return out, err
}

func validateInfluencerIDs(ids []string) error {
	if len(ids) == 0 {
		return Validation("influencer_ids", "at least one influencer is required")
	}
	for _, id := range ids {
		if err := ValidateID("influencer_ids", id); err != nil {
			return err
		}
	}
	return nil
}

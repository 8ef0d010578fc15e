package api

import (
	"context"
	"net/http"
)

const (
	// DefaultInfluencerListLimit mirrors the dashboard's influencer page size.
	DefaultInfluencerListLimit = 100
	maxInfluencerListLimit     = 200
)

// SaveInfluencers promotes selected raw results of a task into the influencer
// store. The server skips results that already exist, so the response may
// report fewer saves than ids sent.
func (c *Client) SaveInfluencers(ctx context.Context, req SaveInfluencersRequest) (SaveInfluencersResponse, error) {
	if err := ValidateID("task_id", req.TaskID); err != nil {
		return SaveInfluencersResponse{}, err
	}
	if len(req.SelectedResultIDs) == 0 {
		return SaveInfluencersResponse{}, Validation("selected_result_ids", "nothing selected")
	}
	for _, id := range req.SelectedResultIDs {
		if err := ValidateID("selected_result_ids", id); err != nil {
			return SaveInfluencersResponse{}, err
		}
	}

	var out SaveInfluencersResponse
	err := c.do(ctx, "save influencers", http.MethodPost, "/influencers/save", nil, req, &out)
	return out, err
}

// ListInfluencers returns saved influencers, most recently saved first.
// A zero Limit means DefaultInfluencerListLimit.
func (c *Client) ListInfluencers(ctx context.Context, opts ListOptions) ([]Influencer, error) {
	if opts.Limit == 0 {
		opts.Limit = DefaultInfluencerListLimit
	}
	if err := validatePage(opts, maxInfluencerListLimit); err != nil {
		return nil, err
	}

	var out []Influencer
	err := c.do(ctx, "list influencers", http.MethodGet, "/influencers", pageQuery(opts), nil, &out)
	return out, err
}

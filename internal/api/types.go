package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the server-side lifecycle state of a search task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusDone    TaskStatus = "done"
	StatusFailed  TaskStatus = "failed"
)

// ParseTaskStatus converts a raw string to a TaskStatus, returning an error for
// unknown values.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	switch st {
	case StatusPending, StatusRunning, StatusDone, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// IsTerminal reports whether no further transition can occur.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// DedupUnique is the only dedup status whose results may be selected for saving.
// Everything else (duplicate_platform, duplicate_url, duplicate_email,
// weak_match, ...) marks a collapsed identity.
const DedupUnique = "unique"

// DefaultPlatform is used when a search task names no platform.
const DefaultPlatform = "youtube"

// =============================================================================
// SEARCH TASKS
// =============================================================================

// CreateSearchTaskRequest is the body of POST /search-tasks.
type CreateSearchTaskRequest struct {
	Query       string   `json:"query"`
	Platforms   []string `json:"platforms"`
	Region      *string  `json:"region,omitempty"`
	FollowerMin *int     `json:"follower_min,omitempty"`
	FollowerMax *int     `json:"follower_max,omitempty"`
}

// CreateSearchTaskResponse is returned by POST /search-tasks.
type CreateSearchTaskResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// SearchTask is the status snapshot returned by GET /search-tasks/{id}.
type SearchTask struct {
	TaskID      string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	ResultCount int        `json:"result_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SearchTaskListItem is one row of GET /search-tasks.
type SearchTaskListItem struct {
	TaskID      string     `json:"task_id"`
	QueryRaw    string     `json:"query_raw"`
	Status      TaskStatus `json:"status"`
	ResultCount int        `json:"result_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SearchResult is one deduplicated result of a finished task.
type SearchResult struct {
	DedupedID           string  `json:"deduped_id"`
	RawResultID         string  `json:"raw_result_id"`
	DedupStatus         string  `json:"dedup_status"`
	MatchedInfluencerID *string `json:"matched_influencer_id"`
	Platform            string  `json:"platform"`
	PlatformUserID      string  `json:"platform_user_id"`
	DisplayName         string  `json:"display_name"`
	ProfileURL          string  `json:"profile_url"`
	FollowerCount       *int    `json:"follower_count"`
	Email               *string `json:"email"`
}

// IsUnique reports whether the result may be selected for saving.
func (r SearchResult) IsUnique() bool { return r.DedupStatus == DedupUnique }

// ListOptions pages list endpoints.
type ListOptions struct {
	Limit  int
	Offset int
}

// =============================================================================
// INFLUENCERS
// =============================================================================

// SaveInfluencersRequest is the body of POST /influencers/save.
type SaveInfluencersRequest struct {
	TaskID            string   `json:"task_id"`
	SelectedResultIDs []string `json:"selected_result_ids"`
}

// SaveInfluencersResponse reports how many selected results became influencers.
type SaveInfluencersResponse struct {
	SavedCount   int `json:"saved_count"`
	SkippedCount int `json:"skipped_count"`
}

// Influencer is one row of GET /influencers.
type Influencer struct {
	ID             string  `json:"id"`
	Platform       string  `json:"platform"`
	PlatformUserID string  `json:"platform_user_id"`
	DisplayName    string  `json:"display_name"`
	ProfileURL     string  `json:"profile_url"`
	FollowerCount  *int    `json:"follower_count"`
	Email          *string `json:"email"`
	SavedBy        string  `json:"saved_by"`
}

// =============================================================================
// EMAIL DRAFTS & CAMPAIGNS
// =============================================================================

// GenerateDraftRequest is the body of POST /email-drafts/generate.
type GenerateDraftRequest struct {
	Goal          string   `json:"goal"`
	Tone          string   `json:"tone"`
	Language      string   `json:"language"`
	InfluencerIDs []string `json:"influencer_ids"`
}

// EmailDraft is a generated outreach email.
type EmailDraft struct {
	ID        string         `json:"id"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Variables map[string]any `json:"variables"`
	CreatedAt time.Time      `json:"created_at"`
}

// SendCampaignRequest is the body of POST /campaigns/send.
type SendCampaignRequest struct {
	DraftID       string   `json:"draft_id"`
	InfluencerIDs []string `json:"influencer_ids"`
	SendRateLimit int      `json:"send_rate_limit,omitempty"`
}

// SendCampaignResponse is returned by POST /campaigns/send.
type SendCampaignResponse struct {
	CampaignID    string `json:"campaign_id"`
	AcceptedCount int    `json:"accepted_count"`
}

// CampaignEvent is one delivery event (sent, delivered, opened, bounced...).
type CampaignEvent struct {
	EventID    string          `json:"event_id"`
	MessageID  string          `json:"message_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	RawPayload json.RawMessage `json:"raw_payload"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}

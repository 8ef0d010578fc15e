package ui

import tea "github.com/charmbracelet/bubbletea"

// Intent messages are emitted by pages and handled by the dashboard, which
// owns the core components.

// StartSearchMsg asks for a new search task.
type StartSearchMsg struct {
	Query     string
	Platforms []string
	Region    string
}

// OpenTaskMsg asks to observe an existing task.
type OpenTaskMsg struct{ TaskID string }

// ReloadHistoryMsg asks for the first page of past tasks.
type ReloadHistoryMsg struct{}

// ToggleResultMsg checks or unchecks one result.
type ToggleResultMsg struct {
	RawResultID string
	Checked     bool
}

// SelectAllMsg selects every unique result.
type SelectAllMsg struct{}

// ClearSelectionMsg empties the selection.
type ClearSelectionMsg struct{}

// SaveSelectionMsg saves the selection as influencers.
type SaveSelectionMsg struct{}

// RefreshResultsMsg reloads the results of a finished task.
type RefreshResultsMsg struct{}

// ReloadInfluencersMsg asks for the saved influencers.
type ReloadInfluencersMsg struct{}

// ComposeDraftMsg seeds the draft form with influencer ids.
type ComposeDraftMsg struct{ InfluencerIDs []string }

// GenerateDraftMsg asks for a draft with the form values.
type GenerateDraftMsg struct {
	Goal        string
	Tone        string
	Language    string
	Influencers string
}

// SendCampaignMsg sends the current draft.
type SendCampaignMsg struct{ RateLimit string }

// WatchCampaignMsg follows the events of a campaign.
type WatchCampaignMsg struct{ CampaignID string }

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// Package main implements campaign CLI commands for outreach.
// This file handles sending drafts and following delivery events.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"outreach/internal/api"
	"outreach/internal/campaign"
	"outreach/internal/logging"
)

// =============================================================================
// CAMPAIGN COMMANDS
// =============================================================================

var (
	campaignDraft       string
	campaignInfluencers []string
	campaignRateLimit   int
	campaignFollow      bool
	campaignJSON        bool
)

// campaignsCmd groups campaign commands
var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Send campaigns and follow their delivery events",
	Long: `Send campaigns and follow their delivery events.

Subcommands:
  send    - Queue a draft for delivery to influencers
  events  - Show (or follow) the delivery events of a campaign`,
}

// campaignsSendCmd sends a draft
var campaignsSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a draft to influencers",
	Args:  cobra.NoArgs,
	RunE:  runCampaignsSend,
}

// campaignsEventsCmd lists campaign events
var campaignsEventsCmd = &cobra.Command{
	Use:   "events <campaign-id>",
	Short: "Show the delivery events of a campaign",
	Long: `Shows the delivery events of a campaign in the order they occurred.
With --follow the events are polled until interrupted and new ones are
printed as they arrive.`,
	Args: cobra.ExactArgs(1),
	RunE: runCampaignsEvents,
}

func runCampaignsSend(cmd *cobra.Command, args []string) error {
	if err := api.ValidateID("draft_id", campaignDraft); err != nil {
		return err
	}
	ids, err := campaign.ParseInfluencerIDs(strings.Join(campaignInfluencers, ","))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return api.Validation("influencer_ids", "at least one influencer is required")
	}
	rate := campaignRateLimit
	if !cmd.Flags().Changed("rate-limit") {
		rate = cfg.Campaign.SendRateLimit
	}
	if rate < 1 {
		return api.Validation("send_rate_limit", "must be at least 1")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := client.SendCampaign(ctx, api.SendCampaignRequest{
		DraftID:       campaignDraft,
		InfluencerIDs: ids,
		SendRateLimit: rate,
	})
	if err != nil {
		return fmt.Errorf("failed to send campaign: %w", err)
	}
	logger.Info("campaign queued",
		zap.String("campaign_id", resp.CampaignID),
		zap.Int("accepted", resp.AcceptedCount),
		zap.Int("rate_limit", rate))

	if campaignJSON {
		return printJSON(resp)
	}
	fmt.Printf("Campaign %s queued, %d of %d accepted at %d/min.\n", resp.CampaignID, resp.AcceptedCount, len(ids), rate)
	fmt.Printf("Follow it with: outreach campaigns events %s --follow\n", resp.CampaignID)
	return nil
}

func runCampaignsEvents(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	feed := campaign.NewFeed(ctx, client, campaign.FeedOptions{
		Interval:       cfg.GetEventsPollInterval(),
		RequestTimeout: cfg.GetAPITimeout(),
		Logger:         logging.Get(logging.CategoryCampaign),
	})
	defer feed.Close()

	start, err := feed.Watch(args[0])
	if err != nil {
		return err
	}

	if campaignFollow {
		_, err := runHeadless(ctx, &eventsFollow{
			feed:  feed,
			start: start,
			out:   os.Stdout,
			print: printEvent,
			seen:  make(map[string]bool),
		})
		return err
	}

	// One fetch; the follow-up tick is dropped.
	feed.Update(start())
	if err := feed.Err(); err != nil {
		return fmt.Errorf("failed to load campaign events: %w", err)
	}
	events := feed.Events()
	if campaignJSON {
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Println("No events yet.")
		return nil
	}
	for _, e := range events {
		printEvent(os.Stdout, e)
	}
	return nil
}

func init() {
	campaignsSendCmd.Flags().StringVar(&campaignDraft, "draft", "", "Draft id from drafts generate (required)")
	campaignsSendCmd.Flags().StringSliceVar(&campaignInfluencers, "influencer", nil, "Influencer id (repeatable or comma separated)")
	campaignsSendCmd.Flags().IntVar(&campaignRateLimit, "rate-limit", campaign.DefaultSendRateLimit, "Emails per minute (default from config)")
	campaignsSendCmd.Flags().BoolVar(&campaignJSON, "json", false, "Print JSON")
	_ = campaignsSendCmd.MarkFlagRequired("draft")
	_ = campaignsSendCmd.MarkFlagRequired("influencer")

	campaignsEventsCmd.Flags().BoolVarP(&campaignFollow, "follow", "f", false, "Keep polling for new events")
	campaignsEventsCmd.Flags().BoolVar(&campaignJSON, "json", false, "Print JSON")

	campaignsCmd.AddCommand(campaignsSendCmd)
	campaignsCmd.AddCommand(campaignsEventsCmd)
}

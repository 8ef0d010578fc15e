// Package main implements email draft CLI commands for outreach.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"outreach/cmd/outreach/ui"
	"outreach/internal/campaign"
	"outreach/internal/logging"
)

// =============================================================================
// DRAFT COMMANDS
// =============================================================================

var (
	draftGoal        string
	draftTone        string
	draftLanguage    string
	draftInfluencers []string
	draftRaw         bool
	draftJSON        bool
)

// draftsCmd groups email draft commands
var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Generate outreach email drafts",
}

// draftsGenerateCmd generates a draft
var draftsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an email draft for influencers",
	Long: `Generates an outreach email for the given influencers. The draft id that
is printed is what "campaigns send --draft" expects.

Example:
  outreach drafts generate --tone friendly --influencer ID1,ID2`,
	Args: cobra.NoArgs,
	RunE: runDraftsGenerate,
}

// newComposer seeds a composer from config and flags. Flags win.
func newComposer(ctx context.Context) (*campaign.Composer, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	c := campaign.NewComposer(ctx, client, campaign.ComposerOptions{
		Goal:           cfg.Drafts.Goal,
		Tone:           cfg.Drafts.Tone,
		Language:       cfg.Drafts.Language,
		SendRateLimit:  cfg.Campaign.SendRateLimit,
		RequestTimeout: cfg.GetAPITimeout(),
		Logger:         logging.Get(logging.CategoryCampaign),
	})
	if draftGoal != "" {
		c.SetGoal(draftGoal)
	}
	if draftTone != "" {
		if err := c.SetTone(draftTone); err != nil {
			return nil, err
		}
	}
	if draftLanguage != "" {
		if err := c.SetLanguage(draftLanguage); err != nil {
			return nil, err
		}
	}
	if err := c.SetInfluencers(strings.Join(draftInfluencers, ",")); err != nil {
		return nil, err
	}
	return c, nil
}

func runDraftsGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	c, err := newComposer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	gen, err := c.Generate()
	if err != nil {
		return err
	}
	c.Update(gen())
	if err := c.Err(campaign.OpGenerate); err != nil {
		return fmt.Errorf("failed to generate draft: %w", err)
	}

	draft, _ := c.Draft()
	if draftJSON {
		return printJSON(draft)
	}

	fmt.Printf("Draft %s (%s, %s)\n", draft.ID, c.Tone(), c.Language())
	fmt.Printf("Subject: %s\n\n", draft.Subject)
	if draftRaw {
		fmt.Println(draft.Body)
		return nil
	}
	fmt.Println(ui.NewMarkdown(cliStyles().Theme, 80).Render(draft.Body))
	return nil
}

func init() {
	draftsGenerateCmd.Flags().StringVar(&draftGoal, "goal", "", "Outreach goal (default from config)")
	draftsGenerateCmd.Flags().StringVar(&draftTone, "tone", "", "Tone: "+strings.Join(campaign.Tones, ", "))
	draftsGenerateCmd.Flags().StringVar(&draftLanguage, "language", "", "Language: "+strings.Join(campaign.Languages, ", "))
	draftsGenerateCmd.Flags().StringSliceVar(&draftInfluencers, "influencer", nil, "Influencer id (repeatable or comma separated)")
	draftsGenerateCmd.Flags().BoolVar(&draftRaw, "raw", false, "Print the body without markdown rendering")
	draftsGenerateCmd.Flags().BoolVar(&draftJSON, "json", false, "Print JSON")
	_ = draftsGenerateCmd.MarkFlagRequired("influencer")

	draftsCmd.AddCommand(draftsGenerateCmd)
}

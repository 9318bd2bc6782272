package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bukhantcev/stavfitness26/pkg/smm/config"
	"github.com/bukhantcev/stavfitness26/pkg/smm/gen"
	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
	"github.com/bukhantcev/stavfitness26/pkg/smm/safety"
	"github.com/bukhantcev/stavfitness26/pkg/smm/store"
)

// newDraftCmd creates the `smmbot draft` command for one-shot generation
// from the terminal.
func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Generate a post draft in the terminal",
		Long: `Generates a single post draft and prints it to stdout. With --save
the draft is also stored for later review in chat.

Examples:
  smmbot draft
  smmbot draft --kind offer
  smmbot draft --kind tip --extra "stretching for office workers" --save`,
		RunE: runDraft,
	}

	cmd.Flags().String("kind", "offer", "post kind: offer, tip, schedule, motivation, review, news")
	cmd.Flags().String("extra", "", "extra instructions for the generator")
	cmd.Flags().Bool("save", false, "store the draft for review in chat")
	return cmd
}

func runDraft(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	config.ResolveAPIKey(cfg, logger)

	kindFlag, _ := cmd.Flags().GetString("kind")
	extra, _ := cmd.Flags().GetString("extra")
	save, _ := cmd.Flags().GetBool("save")

	if !post.IsValidKind(kindFlag) {
		return fmt.Errorf("unknown kind %q, expected offer, tip, schedule, motivation, review or news", kindFlag)
	}
	if safety.IsUnsafe(extra) {
		return fmt.Errorf("extra instructions rejected by the safety filter")
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	profile, err := st.Profile()
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	gw := gen.New(cfg.Gen, logger)
	text, err := gw.GeneratePost(ctx, profile, post.Kind(kindFlag), extra)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Println(text)

	if save {
		draft, err := st.AddDraft(post.Kind(kindFlag), text, "")
		if err != nil {
			return fmt.Errorf("saving draft: %w", err)
		}
		fmt.Printf("\nSaved as draft #%d.\n", draft.ID)
	}
	return nil
}

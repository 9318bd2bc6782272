// callbacks.go implements the inline review buttons. Every action
// operates on the draft that is latest at the moment it runs, not on the
// message the button was attached to.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
	"github.com/bukhantcev/stavfitness26/pkg/smm/gen"
	"github.com/bukhantcev/stavfitness26/pkg/smm/safety"
)

const regenExtra = "Take a different angle on the same topic than last time."

// handleCallback dispatches an inline button press. The callback is
// acked before the slow work starts.
func (b *Bot) handleCallback(ctx context.Context, ev *channels.Event) {
	if err := b.channel.AckCallback(ctx, ev.CallbackID, "Processing..."); err != nil {
		b.logger.Debug("callback ack failed", "action", ev.Action, "error", err)
	}

	switch ev.Action {
	case channels.ActionApprove:
		b.approveCallback(ctx, ev)
	case channels.ActionRegen:
		b.regenCallback(ctx, ev)
	case channels.ActionEdit:
		b.editCallback(ctx, ev)
	case channels.ActionImage, channels.ActionRegenImage:
		b.imageCallback(ctx, ev)
	case channels.ActionRemoveImage:
		b.removeImageCallback(ctx, ev)
	default:
		b.logger.Warn("unknown callback action", "action", ev.Action)
	}
}

// approveCallback publishes the latest draft verbatim, text and
// attachment as stored.
func (b *Bot) approveCallback(ctx context.Context, ev *channels.Event) {
	draft, err := b.store.LatestDraft()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load draft: %v", err))
		return
	}
	if draft == nil {
		b.reply(ctx, ev.ChatID, "No drafts yet. Send a theme or use /draft.")
		return
	}

	if err := b.publishDraft(ctx, draft); err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to publish: %v", err))
		return
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("Published draft #%d.", draft.ID))
}

// regenCallback rewrites the latest draft as a new row: same kind, same
// theme, no attachment.
func (b *Bot) regenCallback(ctx context.Context, ev *channels.Event) {
	draft, err := b.store.LatestDraft()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load draft: %v", err))
		return
	}
	if draft == nil {
		b.reply(ctx, ev.ChatID, "No drafts yet. Send a theme or use /draft.")
		return
	}

	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	extra := regenExtra
	if draft.ImagePrompt != "" {
		extra = "Theme: " + draft.ImagePrompt + ". " + regenExtra
	}

	text, err := b.gen.GeneratePost(ctx, profile, draft.Kind, extra)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Generation failed: %v", err))
		return
	}

	next, err := b.store.AddDraft(draft.Kind, text, draft.ImagePrompt)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to save draft: %v", err))
		return
	}

	b.sendDraft(ctx, ev.ChatID, next)
}

// editCallback arms the pending edit capture.
func (b *Bot) editCallback(ctx context.Context, ev *channels.Event) {
	b.armEditCapture()
	b.reply(ctx, ev.ChatID, "Send the final post text as your next message. It will be published as-is.")
}

// imageCallback attaches a freshly generated image to the latest draft.
// A permission denial from the backend is recoverable: the draft stays
// text-only and the admin is told to proceed without an image.
func (b *Bot) imageCallback(ctx context.Context, ev *channels.Event) {
	draft, err := b.store.LatestDraft()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load draft: %v", err))
		return
	}
	if draft == nil {
		b.reply(ctx, ev.ChatID, "No drafts yet. Send a theme or use /draft.")
		return
	}

	theme := draft.ImagePrompt
	if theme != "" && safety.IsUnsafe(theme) {
		b.reply(ctx, ev.ChatID, safetyMessage)
		return
	}

	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	image, err := b.gen.GenerateImage(ctx, gen.BuildImagePrompt(profile, theme))
	if errors.Is(err, gen.ErrImagePermission) {
		b.reply(ctx, ev.ChatID, "The image backend is not available on this plan. Proceeding without an image.")
		return
	}
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Image generation failed: %v", err))
		return
	}

	if err := b.store.SetDraftImage(draft.ID, image, theme); err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to attach image: %v", err))
		return
	}

	updated, err := b.store.Draft(draft.ID)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load draft: %v", err))
		return
	}
	b.sendDraft(ctx, ev.ChatID, updated)
}

// removeImageCallback clears the latest draft's attachment. Clearing an
// already text-only draft succeeds quietly.
func (b *Bot) removeImageCallback(ctx context.Context, ev *channels.Event) {
	draft, err := b.store.LatestDraft()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load draft: %v", err))
		return
	}
	if draft == nil {
		b.reply(ctx, ev.ChatID, "No drafts yet. Send a theme or use /draft.")
		return
	}

	if err := b.store.ClearDraftImage(draft.ID); err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to remove image: %v", err))
		return
	}

	draft.Attachment = nil
	b.reply(ctx, ev.ChatID, "Image removed.")
	b.sendDraft(ctx, ev.ChatID, draft)
}

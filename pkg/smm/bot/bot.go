// Package bot implements the draft/approval workflow: it consumes events
// from a chat channel, gates them through the access guard, and drives
// draft generation, review and publishing against the store and the
// generation gateway.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
	"github.com/bukhantcev/stavfitness26/pkg/smm/scheduler"
	"github.com/bukhantcev/stavfitness26/pkg/smm/store"
)

// eventTimeout bounds the handling of a single incoming event,
// generation calls included.
const eventTimeout = 3 * time.Minute

// Generator is the slice of the generation gateway the bot needs.
// Satisfied by *gen.Gateway; tests substitute a fake.
type Generator interface {
	GeneratePost(ctx context.Context, p *post.Profile, kind post.Kind, extra string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Config holds bot-level settings.
type Config struct {
	// TargetChat is the chat/channel ID posts are published to.
	TargetChat string `yaml:"target_chat"`

	// Admins are the caller IDs allowed to operate the bot.
	Admins []string `yaml:"admins"`

	// DefaultDailyTime is armed when autopost is toggled on without an
	// explicit time.
	DefaultDailyTime string `yaml:"default_daily_time"`
}

// Bot wires the channel, store, gateway and scheduler together.
type Bot struct {
	cfg     Config
	store   *store.Store
	gen     Generator
	channel channels.Channel
	sched   *scheduler.Scheduler
	access  *AccessManager
	logger  *slog.Logger

	// editArmed is the process-wide pending edit capture. Arming twice
	// replaces silently; the next admin free text consumes it.
	editMu    sync.Mutex
	editArmed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Bot. The scheduler may be nil when autopost is not wired
// (one-shot CLI use).
func New(cfg Config, st *store.Store, g Generator, ch channels.Channel, sched *scheduler.Scheduler, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultDailyTime == "" {
		cfg.DefaultDailyTime = "10:00"
	}
	return &Bot{
		cfg:     cfg,
		store:   st,
		gen:     g,
		channel: ch,
		sched:   sched,
		access:  NewAccessManager(cfg.Admins, logger),
		logger:  logger.With("component", "bot"),
	}
}

// Start launches the event loop. The channel must already be connected.
func (b *Bot) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.eventLoop()
	b.logger.Info("bot started", "channel", b.channel.Name(), "target", b.cfg.TargetChat)
}

// Stop shuts the event loop down and waits for in-flight handlers.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("bot stopped")
}

// eventLoop dispatches each incoming event to its own goroutine so a slow
// generation call blocks only that event.
func (b *Bot) eventLoop() {
	defer b.wg.Done()
	for {
		select {
		case ev, ok := <-b.channel.Receive():
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleEvent(ev)
			}()

		case <-b.ctx.Done():
			return
		}
	}
}

// handleEvent processes one event: access check first, before the safety
// filter and before any side effect.
func (b *Bot) handleEvent(ev *channels.Event) {
	logger := b.logger.With("from", ev.From, "chat_id", ev.ChatID, "type", string(ev.Type))

	ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
	defer cancel()

	if !b.access.Authorize(ev.From) {
		if ev.Type == channels.EventCallback {
			if err := b.channel.AckCallback(ctx, ev.CallbackID, DeniedMessage); err != nil {
				logger.Warn("failed to ack denied callback", "error", err)
			}
			return
		}
		b.reply(ctx, ev.ChatID, DeniedMessage)
		return
	}

	switch ev.Type {
	case channels.EventCallback:
		b.handleCallback(ctx, ev)
	case channels.EventText:
		b.handleText(ctx, ev)
	default:
		logger.Debug("ignoring event", "type", string(ev.Type))
	}
}

// ---------- Edit Capture ----------

// armEditCapture arms the single pending edit slot. Last writer wins.
func (b *Bot) armEditCapture() {
	b.editMu.Lock()
	defer b.editMu.Unlock()
	b.editArmed = true
}

// consumeEditCapture disarms the slot and reports whether it was armed.
func (b *Bot) consumeEditCapture() bool {
	b.editMu.Lock()
	defer b.editMu.Unlock()
	armed := b.editArmed
	b.editArmed = false
	return armed
}

// ---------- Publishing ----------

// publishText sends plain text to the configured target chat.
func (b *Bot) publishText(ctx context.Context, text string) error {
	if b.cfg.TargetChat == "" {
		return fmt.Errorf("no target chat configured")
	}
	return b.channel.Send(ctx, b.cfg.TargetChat, &channels.OutgoingMessage{Text: text})
}

// publishDraft publishes a draft's text and attachment verbatim.
func (b *Bot) publishDraft(ctx context.Context, d *post.Draft) error {
	if b.cfg.TargetChat == "" {
		return fmt.Errorf("no target chat configured")
	}
	if d.HasImage() {
		return b.channel.SendPhoto(ctx, b.cfg.TargetChat, &channels.PhotoMessage{
			Data:     d.Attachment,
			Filename: uuid.NewString() + ".png",
			Caption:  d.Text,
		})
	}
	return b.channel.Send(ctx, b.cfg.TargetChat, &channels.OutgoingMessage{Text: d.Text})
}

// PublishDaily is the scheduled autopost job body: generate a post for
// the weekday's kind and publish it directly, without a draft row or
// review step.
func (b *Bot) PublishDaily(ctx context.Context) error {
	kind := post.KindForDay(time.Now())

	profile, err := b.store.Profile()
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	text, err := b.gen.GeneratePost(ctx, profile, kind, "")
	if err != nil {
		return fmt.Errorf("generating %s post: %w", kind, err)
	}

	if err := b.publishText(ctx, text); err != nil {
		return fmt.Errorf("publishing %s post: %w", kind, err)
	}

	b.logger.Info("daily post published", "kind", string(kind), "chars", len(text))
	return nil
}

// ---------- Replies ----------

// reply sends plain text back to the admin chat. Send failures are
// logged, never propagated.
func (b *Bot) reply(ctx context.Context, chatID, text string) {
	if err := b.channel.Send(ctx, chatID, &channels.OutgoingMessage{Text: text}); err != nil {
		b.logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

// sendDraft shows a draft to the admin with the review keyboard.
func (b *Bot) sendDraft(ctx context.Context, chatID string, d *post.Draft) {
	header := fmt.Sprintf("Draft #%d (%s)\n\n%s", d.ID, d.Kind, d.Text)
	buttons := draftButtons(d)

	var err error
	if d.HasImage() {
		err = b.channel.SendPhoto(ctx, chatID, &channels.PhotoMessage{
			Data:    d.Attachment,
			Caption: header,
			Buttons: buttons,
		})
	} else {
		err = b.channel.Send(ctx, chatID, &channels.OutgoingMessage{
			Text:    header,
			Buttons: buttons,
		})
	}
	if err != nil {
		b.logger.Error("failed to send draft", "draft_id", d.ID, "error", err)
	}
}

// draftButtons builds the inline review keyboard for a draft. The image
// row depends on whether an attachment is present.
func draftButtons(d *post.Draft) [][]channels.Button {
	rows := [][]channels.Button{
		{
			{Label: "✅ Approve", Action: channels.ActionApprove},
			{Label: "🔄 Regenerate", Action: channels.ActionRegen},
			{Label: "✏️ Edit", Action: channels.ActionEdit},
		},
	}
	if d.HasImage() {
		rows = append(rows, []channels.Button{
			{Label: "🖼 New image", Action: channels.ActionRegenImage},
			{Label: "🗑 Remove image", Action: channels.ActionRemoveImage},
		})
	} else {
		rows = append(rows, []channels.Button{
			{Label: "🖼 Add image", Action: channels.ActionImage},
		})
	}
	return rows
}

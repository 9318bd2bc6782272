// commands.go implements the admin command surface:
//
//	/start                    - greeting + reply keyboard
//	/menu                     - show the reply keyboard
//	/setup key=value;...      - update brand profile fields
//	/draft kind=...;extra=... - generate a new draft
//	/plan_week                - 7 drafts over the weekly kind cycle
//	/schedule HH:MM|off       - control daily autopost (no arg: show)
//	/status                   - target, schedule and profile summary
//
// Any other free text from an admin is a themed draft request, after the
// pending edit capture and the safety filter have had their turn.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
	"github.com/bukhantcev/stavfitness26/pkg/smm/safety"
)

// Reply keyboard labels.
const (
	menuMakeDraft = "📝 Make draft"
	menuPlanWeek  = "🗓 Plan week"
	menuStatus    = "ℹ️ Status"
	menuAutopost  = "⏰ Toggle autopost"
)

const safetyMessage = "That topic is not something I can post about. Try another theme."

// menuKeyboard is the persistent reply keyboard shown to the admin.
func menuKeyboard() [][]string {
	return [][]string{
		{menuMakeDraft, menuPlanWeek},
		{menuStatus, menuAutopost},
	}
}

// IsCommand returns true if the message starts with "/".
func IsCommand(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "/")
}

// handleText routes an admin text message: command, menu button, pending
// edit capture, then free-text theme.
func (b *Bot) handleText(ctx context.Context, ev *channels.Event) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	if IsCommand(text) {
		b.handleCommand(ctx, ev, text)
		return
	}

	switch text {
	case menuMakeDraft:
		b.draftCommand(ctx, ev, "")
		return
	case menuPlanWeek:
		b.planWeekCommand(ctx, ev)
		return
	case menuStatus:
		b.statusCommand(ctx, ev)
		return
	case menuAutopost:
		b.toggleAutopost(ctx, ev)
		return
	}

	// A pending edit consumes the next free text verbatim: publish it
	// as-is, no draft row, and disarm regardless of the outcome.
	if b.consumeEditCapture() {
		if err := b.publishText(ctx, text); err != nil {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to publish: %v", err))
			return
		}
		b.reply(ctx, ev.ChatID, "Published.")
		return
	}

	// Otherwise the text is a theme for a new draft.
	if safety.IsUnsafe(text) {
		b.reply(ctx, ev.ChatID, safetyMessage)
		return
	}
	b.newThemedDraft(ctx, ev, text)
}

// handleCommand dispatches a slash command.
func (b *Bot) handleCommand(ctx context.Context, ev *channels.Event, text string) {
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "/start":
		b.startCommand(ctx, ev)
	case "/menu":
		b.menuCommand(ctx, ev)
	case "/setup":
		b.setupCommand(ctx, ev, args)
	case "/draft":
		b.draftCommand(ctx, ev, args)
	case "/plan_week":
		b.planWeekCommand(ctx, ev)
	case "/schedule":
		b.scheduleCommand(ctx, ev, args)
	case "/status":
		b.statusCommand(ctx, ev)
	default:
		b.reply(ctx, ev.ChatID, "Unknown command. Try /menu.")
	}
}

// ---------- Commands ----------

func (b *Bot) startCommand(ctx context.Context, ev *channels.Event) {
	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}
	msg := fmt.Sprintf("Hi! I draft posts for %s.\n\n"+
		"Send me a theme, or use /draft, /plan_week, /schedule, /status.\n"+
		"/setup adjusts the brand profile.", profile.Name)
	if err := b.channel.Send(ctx, ev.ChatID, &channels.OutgoingMessage{
		Text: msg,
		Menu: menuKeyboard(),
	}); err != nil {
		b.logger.Error("failed to send greeting", "error", err)
	}
}

func (b *Bot) menuCommand(ctx context.Context, ev *channels.Event) {
	if err := b.channel.Send(ctx, ev.ChatID, &channels.OutgoingMessage{
		Text: "Pick an action:",
		Menu: menuKeyboard(),
	}); err != nil {
		b.logger.Error("failed to send menu", "error", err)
	}
}

// setupCommand updates profile fields from "key=value;key=value" pairs.
// List fields take comma-separated values. Without args it prints the
// current profile and usage.
func (b *Bot) setupCommand(ctx context.Context, ev *channels.Event, args string) {
	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	if args == "" {
		b.reply(ctx, ev.ChatID, formatProfile(profile)+
			"\n\nUsage: /setup key=value;key=value\n"+
			"Keys: name, address, phone, services, tone, hashtags, offers, brand_words, image_style\n"+
			"List keys take comma-separated values.")
		return
	}

	pairs := parsePairs(args)
	if len(pairs) == 0 {
		b.reply(ctx, ev.ChatID, "Nothing to update. Expected key=value pairs separated by ';'.")
		return
	}

	var unknown []string
	for key, value := range pairs {
		switch key {
		case "name":
			profile.Name = value
		case "address":
			profile.Address = value
		case "phone":
			profile.Phone = value
		case "tone":
			profile.Tone = value
		case "image_style":
			profile.ImageStyle = value
		case "services":
			profile.Services = splitList(value)
		case "hashtags":
			profile.Hashtags = splitList(value)
		case "offers":
			profile.Offers = splitList(value)
		case "brand_words":
			profile.BrandWords = splitList(value)
		default:
			unknown = append(unknown, key)
		}
	}

	if err := b.store.SaveProfile(profile); err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to save profile: %v", err))
		return
	}

	msg := "Profile updated.\n\n" + formatProfile(profile)
	if len(unknown) > 0 {
		msg += "\n\nIgnored unknown keys: " + strings.Join(unknown, ", ")
	}
	b.reply(ctx, ev.ChatID, msg)
}

// draftCommand creates a new draft. Args form: "kind=offer;extra=...".
// Defaults to kind "offer". The extra steers generation but is not
// stored as the draft's image theme.
func (b *Bot) draftCommand(ctx context.Context, ev *channels.Event, args string) {
	kind := post.KindOffer
	extra := ""

	if args != "" {
		pairs := parsePairs(args)
		if v, ok := pairs["kind"]; ok {
			if !post.IsValidKind(v) {
				b.reply(ctx, ev.ChatID, fmt.Sprintf(
					"Unknown kind %q. Kinds: offer, tip, schedule, motivation, review, news.", v))
				return
			}
			kind = post.Kind(v)
		}
		extra = pairs["extra"]
	}

	if safety.IsUnsafe(extra) {
		b.reply(ctx, ev.ChatID, safetyMessage)
		return
	}

	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	text, err := b.gen.GeneratePost(ctx, profile, kind, extra)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Generation failed: %v", err))
		return
	}

	draft, err := b.store.AddDraft(kind, text, "")
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to save draft: %v", err))
		return
	}

	b.sendDraft(ctx, ev.ChatID, draft)
}

// newThemedDraft turns admin free text into a "tip" draft. The theme is
// remembered as the draft's image prompt for later attach requests.
func (b *Bot) newThemedDraft(ctx context.Context, ev *channels.Event, theme string) {
	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	text, err := b.gen.GeneratePost(ctx, profile, post.KindTip, theme)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Generation failed: %v", err))
		return
	}

	draft, err := b.store.AddDraft(post.KindTip, text, theme)
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to save draft: %v", err))
		return
	}

	b.sendDraft(ctx, ev.ChatID, draft)
}

// planWeekCommand generates one draft per day over the weekly kind
// cycle. A failed day is reported and skipped, the rest continue.
func (b *Bot) planWeekCommand(ctx context.Context, ev *channels.Event) {
	profile, err := b.store.Profile()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	b.reply(ctx, ev.ChatID, "Drafting the week, this takes a moment...")

	failed := 0
	for i, kind := range post.PlanWeekKinds {
		text, err := b.gen.GeneratePost(ctx, profile, kind, fmt.Sprintf("This is the post for day %d of the weekly plan.", i+1))
		if err != nil {
			failed++
			b.logger.Error("plan_week generation failed", "day", i+1, "kind", string(kind), "error", err)
			continue
		}
		draft, err := b.store.AddDraft(kind, text, "")
		if err != nil {
			failed++
			b.logger.Error("plan_week save failed", "day", i+1, "kind", string(kind), "error", err)
			continue
		}
		b.sendDraft(ctx, ev.ChatID, draft)
	}

	if failed > 0 {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Week planned, %d of %d days failed.", failed, len(post.PlanWeekKinds)))
	} else {
		b.reply(ctx, ev.ChatID, "Week planned. Review the drafts above.")
	}
}

// scheduleCommand controls daily autopost. No argument shows the current
// setting; "off" disables; "HH:MM" arms the daily job.
func (b *Bot) scheduleCommand(ctx context.Context, ev *channels.Event, args string) {
	switch strings.ToLower(args) {
	case "":
		current, err := b.store.DailyTime()
		if err != nil {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to read schedule: %v", err))
			return
		}
		if current == "" {
			b.reply(ctx, ev.ChatID, "Autopost is off. Use /schedule HH:MM to enable.")
		} else {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Autopost daily at %s. Use /schedule off to disable.", current))
		}

	case "off":
		if err := b.setSchedule(""); err != nil {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to disable autopost: %v", err))
			return
		}
		b.reply(ctx, ev.ChatID, "Autopost is off.")

	default:
		if err := b.setSchedule(args); err != nil {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Cannot schedule: %v. Expected /schedule HH:MM or /schedule off.", err))
			return
		}
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Autopost daily at %s.", args))
	}
}

// setSchedule re-arms the scheduler first, then persists the setting, so
// an invalid time never reaches the store.
func (b *Bot) setSchedule(hhmm string) error {
	if b.sched != nil {
		if err := b.sched.Reschedule(hhmm); err != nil {
			return err
		}
	}
	return b.store.SetDailyTime(hhmm)
}

// toggleAutopost flips the daily job: off when armed, on at the default
// time otherwise.
func (b *Bot) toggleAutopost(ctx context.Context, ev *channels.Event) {
	current, err := b.store.DailyTime()
	if err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to read schedule: %v", err))
		return
	}

	if current != "" {
		if err := b.setSchedule(""); err != nil {
			b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to disable autopost: %v", err))
			return
		}
		b.reply(ctx, ev.ChatID, "Autopost is off.")
		return
	}

	if err := b.setSchedule(b.cfg.DefaultDailyTime); err != nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("Failed to enable autopost: %v", err))
		return
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("Autopost daily at %s.", b.cfg.DefaultDailyTime))
}

func (b *Bot) statusCommand(ctx context.Context, ev *channels.Event) {
	var sb strings.Builder

	sb.WriteString("Channel: " + b.channel.Name() + "\n")
	if b.cfg.TargetChat != "" {
		sb.WriteString("Target: " + b.cfg.TargetChat + "\n")
	} else {
		sb.WriteString("Target: not configured\n")
	}

	if current, err := b.store.DailyTime(); err != nil {
		sb.WriteString(fmt.Sprintf("Autopost: error (%v)\n", err))
	} else if current == "" {
		sb.WriteString("Autopost: off\n")
	} else {
		sb.WriteString("Autopost: daily at " + current + "\n")
	}

	if count, err := b.store.CountDrafts(); err == nil {
		sb.WriteString(fmt.Sprintf("Drafts: %d\n", count))
	}

	if profile, err := b.store.Profile(); err == nil {
		sb.WriteString("\n" + formatProfile(profile))
	}

	b.reply(ctx, ev.ChatID, sb.String())
}

// ---------- Helpers ----------

// parsePairs parses "key=value;key=value" into a map. Keys are lowered
// and trimmed; malformed segments are skipped.
func parsePairs(args string) map[string]string {
	pairs := make(map[string]string)
	for _, segment := range strings.Split(args, ";") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			pairs[key] = value
		}
	}
	return pairs
}

// splitList splits a comma-separated value into trimmed non-empty items.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// formatProfile renders the brand profile for chat display.
func formatProfile(p *post.Profile) string {
	var sb strings.Builder
	sb.WriteString("Profile: " + p.Name + "\n")
	sb.WriteString("Address: " + p.Address + "\n")
	sb.WriteString("Phone: " + p.Phone + "\n")
	sb.WriteString("Services: " + strings.Join(p.Services, ", ") + "\n")
	sb.WriteString("Tone: " + p.Tone + "\n")
	sb.WriteString("Hashtags: " + strings.Join(p.Hashtags, " ") + "\n")
	sb.WriteString("Offers: " + strings.Join(p.Offers, "; ") + "\n")
	sb.WriteString("Brand words: " + strings.Join(p.BrandWords, ", ") + "\n")
	sb.WriteString("Image style: " + p.ImageStyle)
	return sb.String()
}

// Package discord implements the Discord channel using discordgo.
//
// The review workflow maps onto message components: inline buttons become
// an ActionsRow whose CustomIDs carry the fixed action identifiers, and
// button presses are acknowledged immediately (Discord's 3s limit) before
// being forwarded as callback events.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
)

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`
}

// Discord implements channels.Channel over the discordgo gateway.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	// events carries inbound messages and button presses to the bot.
	events chan *channels.Event

	// connected tracks connection state.
	connected atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
		events: make(chan *channels.Event, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onMessageCreate)
	session.AddHandler(d.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)

	return nil
}

// Disconnect closes the Discord gateway connection.
func (d *Discord) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return nil
}

// Send sends a text message, split into chunks under Discord's 2000
// character limit, with the inline keyboard attached to the last chunk.
func (d *Discord) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}

	chunks := splitMessage(msg.Text, 2000)
	for i, chunk := range chunks {
		msgSend := &discordgo.MessageSend{Content: chunk}
		if i == len(chunks)-1 {
			msgSend.Components = buildComponents(msg.Buttons)
		}
		if _, err := d.session.ChannelMessageSendComplex(to, msgSend); err != nil {
			return err
		}
	}
	return nil
}

// SendPhoto sends an image file with a caption.
func (d *Discord) SendPhoto(ctx context.Context, to string, photo *channels.PhotoMessage) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}
	if len(photo.Data) == 0 {
		return fmt.Errorf("discord: photo data is required")
	}

	filename := photo.Filename
	if filename == "" {
		filename = "post.png"
	}

	msgSend := &discordgo.MessageSend{
		Content: photo.Caption,
		Files: []*discordgo.File{
			{Name: filename, Reader: bytes.NewReader(photo.Data)},
		},
		Components: buildComponents(photo.Buttons),
	}
	_, err := d.session.ChannelMessageSendComplex(to, msgSend)
	return err
}

// AckCallback is a no-op: interactions are acknowledged inline in
// onInteractionCreate to satisfy Discord's 3 second limit.
func (d *Discord) AckCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

// Receive returns the inbound event stream.
func (d *Discord) Receive() <-chan *channels.Event {
	return d.events
}

// IsConnected reports whether the bot is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// ---------- Event Handlers ----------

// onMessageCreate forwards user messages as text events.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}

	d.emit(&channels.Event{
		ID:        m.ID,
		Channel:   "discord",
		From:      m.Author.ID,
		FromName:  m.Author.Username,
		ChatID:    m.ChannelID,
		Type:      channels.EventText,
		Text:      m.Content,
		Timestamp: m.Timestamp,
	})
}

// onInteractionCreate acknowledges button presses and forwards them as
// callback events.
func (d *Discord) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	action := i.MessageComponentData().CustomID
	if action == "" {
		return
	}

	userID := ""
	username := ""
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
		username = i.Member.User.Username
	} else if i.User != nil {
		userID = i.User.ID
		username = i.User.Username
	}

	// Acknowledge immediately to satisfy Discord's 3s limit.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		d.logger.Warn("discord: failed to ack interaction", "action", action, "error", err)
	}

	d.emit(&channels.Event{
		ID:        i.ID,
		Channel:   "discord",
		From:      userID,
		FromName:  username,
		ChatID:    i.ChannelID,
		Type:      channels.EventCallback,
		Action:    action,
		Timestamp: time.Now(),
	})
}

// emit forwards an event, dropping it if the buffer is full.
func (d *Discord) emit(ev *channels.Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("discord: event buffer full, dropping event", "id", ev.ID)
	}
}

// ---------- Helpers ----------

// buildComponents maps button rows onto discordgo ActionsRows.
func buildComponents(rows [][]channels.Button) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	components := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			if b.Label == "" || b.Action == "" {
				continue
			}
			buttons = append(buttons, discordgo.Button{
				CustomID: b.Action,
				Label:    b.Label,
				Style:    discordgo.PrimaryButton,
			})
		}
		if len(buttons) > 0 {
			components = append(components, discordgo.ActionsRow{Components: buttons})
		}
	}
	if len(components) == 0 {
		return nil
	}
	return components
}

// splitMessage splits text into chunks respecting maxLen, preferring
// newline boundaries.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// Compile-time interface verification.
var _ channels.Channel = (*Discord)(nil)

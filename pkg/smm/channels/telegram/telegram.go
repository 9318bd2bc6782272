// Package telegram implements the Telegram channel using the Bot API
// directly via HTTP — no external dependencies.
//
// Features:
//   - Long polling for updates (getUpdates)
//   - Send text with inline keyboards and reply-keyboard menus
//   - Photo upload via multipart (sendPhoto)
//   - Callback query handling and acknowledgment (answerCallbackQuery)
//   - Bot command registration (setMyCommands)
//   - HTML formatting for rich messages
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
)

// Config holds Telegram channel configuration.
type Config struct {
	// Token is the Telegram Bot API token (from @BotFather).
	Token string `yaml:"token"`

	// ParseMode sets the parse mode for outgoing messages ("HTML" or "Markdown").
	ParseMode string `yaml:"parse_mode"`
}

// BotCommand is one entry registered via setMyCommands.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// Telegram implements channels.Channel over Bot API long polling.
type Telegram struct {
	cfg    Config
	logger *slog.Logger
	client *http.Client

	// baseURL is the Bot API base URL (https://api.telegram.org/bot<token>).
	baseURL string

	// events carries inbound messages and callbacks to the bot.
	events chan *channels.Event

	// connected tracks connection state.
	connected atomic.Bool

	// offset is the last processed update ID + 1.
	offset int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Telegram channel instance.
func New(cfg Config, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "HTML"
	}
	return &Telegram{
		cfg:     cfg,
		logger:  logger.With("component", "telegram"),
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://api.telegram.org/bot" + cfg.Token,
		events:  make(chan *channels.Event, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "telegram".
func (t *Telegram) Name() string { return "telegram" }

// Connect verifies the token and starts the long-polling loop.
func (t *Telegram) Connect(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token is required")
	}

	// Prevent double-connect goroutine leak.
	if t.connected.Load() {
		return nil
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	me, err := t.getMe()
	if err != nil {
		return fmt.Errorf("telegram: failed to verify token: %w", err)
	}
	t.logger.Info("telegram: connected", "bot", me.Username, "id", me.ID)
	t.connected.Store(true)

	go t.pollLoop()

	return nil
}

// Disconnect stops the polling loop.
func (t *Telegram) Disconnect() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.connected.Store(false)
	t.logger.Info("telegram: disconnected")
	return nil
}

// Send sends a text message, with an inline keyboard and/or reply-keyboard
// menu when provided.
func (t *Telegram) Send(ctx context.Context, to string, msg *channels.OutgoingMessage) error {
	if !t.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	payload := map[string]any{
		"chat_id":    chatIDValue(to),
		"text":       msg.Text,
		"parse_mode": t.cfg.ParseMode,
	}
	if markup := inlineKeyboard(msg.Buttons); markup != nil {
		payload["reply_markup"] = markup
	} else if menu := replyKeyboard(msg.Menu); menu != nil {
		payload["reply_markup"] = menu
	}

	_, err := t.apiCall(ctx, "sendMessage", payload)
	return err
}

// SendPhoto uploads an image with caption via multipart form data.
func (t *Telegram) SendPhoto(ctx context.Context, to string, photo *channels.PhotoMessage) error {
	if !t.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	if len(photo.Data) == 0 {
		return fmt.Errorf("telegram: photo data is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	_ = w.WriteField("chat_id", to)
	if photo.Caption != "" {
		_ = w.WriteField("caption", photo.Caption)
		_ = w.WriteField("parse_mode", t.cfg.ParseMode)
	}
	if markup := inlineKeyboard(photo.Buttons); markup != nil {
		data, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("telegram: marshal keyboard: %w", err)
		}
		_ = w.WriteField("reply_markup", string(data))
	}

	filename := photo.Filename
	if filename == "" {
		filename = "post.png"
	}
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("telegram: creating form file: %w", err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return fmt.Errorf("telegram: writing photo data: %w", err)
	}
	w.Close()

	url := t.baseURL + "/sendPhoto"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("telegram: creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: upload failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram: decoding sendPhoto response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram: sendPhoto: %s", result.Description)
	}
	return nil
}

// AckCallback answers a callback query so the client stops the spinner.
// Late answers fail on Telegram's side; those errors are not surfaced.
func (t *Telegram) AckCallback(ctx context.Context, callbackID, text string) error {
	if !t.connected.Load() || callbackID == "" {
		return nil
	}
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	if _, err := t.apiCall(ctx, "answerCallbackQuery", payload); err != nil {
		t.logger.Debug("telegram: answerCallbackQuery failed", "error", err)
	}
	return nil
}

// Receive returns the inbound event stream.
func (t *Telegram) Receive() <-chan *channels.Event {
	return t.events
}

// IsConnected reports whether the bot is connected.
func (t *Telegram) IsConnected() bool { return t.connected.Load() }

// SetCommands registers the bot command list shown in the client UI.
func (t *Telegram) SetCommands(ctx context.Context, cmds []BotCommand) error {
	_, err := t.apiCall(ctx, "setMyCommands", map[string]any{"commands": cmds})
	return err
}

// ---------- Internal ----------

// chatIDValue passes numeric chat IDs as integers and "@channel" names
// as strings, matching what the Bot API accepts for chat_id.
func chatIDValue(to string) any {
	if id, err := strconv.ParseInt(to, 10, 64); err == nil {
		return id
	}
	return to
}

// inlineKeyboard builds an InlineKeyboardMarkup from button rows.
func inlineKeyboard(rows [][]channels.Button) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]map[string]any, 0, len(rows))
	for _, row := range rows {
		line := make([]map[string]any, 0, len(row))
		for _, b := range row {
			if b.Label == "" {
				continue
			}
			action := b.Action
			if len(action) > 64 {
				action = action[:64] // Telegram caps callback_data at 64 bytes.
			}
			line = append(line, map[string]any{
				"text":          b.Label,
				"callback_data": action,
			})
		}
		if len(line) > 0 {
			keyboard = append(keyboard, line)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	return map[string]any{"inline_keyboard": keyboard}
}

// replyKeyboard builds a persistent ReplyKeyboardMarkup from menu rows.
func replyKeyboard(rows [][]string) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]map[string]any, 0, len(rows))
	for _, row := range rows {
		line := make([]map[string]any, 0, len(row))
		for _, label := range row {
			if label != "" {
				line = append(line, map[string]any{"text": label})
			}
		}
		if len(line) > 0 {
			keyboard = append(keyboard, line)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	return map[string]any{
		"keyboard":        keyboard,
		"resize_keyboard": true,
	}
}

// pollLoop runs the getUpdates long-polling loop with backoff on errors.
func (t *Telegram) pollLoop() {
	t.logger.Info("telegram: polling started")
	backoff := time.Second

	for {
		select {
		case <-t.ctx.Done():
			t.logger.Info("telegram: polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(t.offset, 100, 30)
		if err != nil {
			t.logger.Warn("telegram: getUpdates error", "error", err, "backoff", backoff)
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second

		for _, u := range updates {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			t.processUpdate(u)
		}
	}
}

// processUpdate converts a Telegram update into a channels.Event.
func (t *Telegram) processUpdate(u tgUpdate) {
	if u.CallbackQuery != nil {
		q := u.CallbackQuery
		chatID := ""
		if q.Message != nil {
			chatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		}
		t.emit(&channels.Event{
			ID:         q.ID,
			Channel:    "telegram",
			From:       strconv.FormatInt(q.From.ID, 10),
			FromName:   displayName(&q.From),
			ChatID:     chatID,
			Type:       channels.EventCallback,
			Action:     q.Data,
			CallbackID: q.ID,
			Timestamp:  time.Now(),
		})
		return
	}

	msg := u.Message
	if msg == nil || msg.Text == "" {
		return
	}

	from := ""
	fromName := ""
	if msg.From != nil {
		from = strconv.FormatInt(msg.From.ID, 10)
		fromName = displayName(msg.From)
	}

	t.emit(&channels.Event{
		ID:        strconv.FormatInt(int64(msg.MessageID), 10),
		Channel:   "telegram",
		From:      from,
		FromName:  fromName,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Type:      channels.EventText,
		Text:      msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0),
	})
}

// emit forwards an event, dropping it if the buffer is full.
func (t *Telegram) emit(ev *channels.Event) {
	select {
	case t.events <- ev:
	default:
		t.logger.Warn("telegram: event buffer full, dropping event", "id", ev.ID)
	}
}

func displayName(u *tgUser) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// ---------- Telegram Bot API Types ----------

type tgUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *tgMessage       `json:"message"`
	CallbackQuery *tgCallbackQuery `json:"callback_query"`
}

type tgCallbackQuery struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type tgMessage struct {
	MessageID int     `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Date      int     `json:"date"`
	Text      string  `json:"text"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	IsBot     bool   `json:"is_bot"`
}

type tgChat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type tgBotUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// ---------- API Helpers ----------

// apiCall makes a POST request to the Telegram Bot API.
func (t *Telegram) apiCall(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = t.ctx
	}
	url := t.baseURL + "/" + method
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: creating request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decoding %s response: %w", method, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram: %s: %s", method, result.Description)
	}
	return result.Result, nil
}

// getMe verifies the bot token and returns bot info.
func (t *Telegram) getMe() (*tgBotUser, error) {
	data, err := t.apiCall(t.ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}
	var user tgBotUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("telegram: parsing getMe: %w", err)
	}
	return &user, nil
}

// getUpdates fetches new updates using long polling.
func (t *Telegram) getUpdates(offset int64, limit, timeoutSecs int) ([]tgUpdate, error) {
	data, err := t.apiCall(t.ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"limit":           limit,
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}
	var updates []tgUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("telegram: parsing updates: %w", err)
	}
	return updates, nil
}

// Compile-time interface verification.
var _ channels.Channel = (*Telegram)(nil)

// Package channels defines the interfaces and types the bot uses to talk
// to chat platforms. Each transport (Telegram, Discord) implements the
// Channel interface to deliver inbound events and accept outbound posts
// in a unified way.
package channels

import (
	"context"
	"fmt"
	"time"
)

// EventType identifies the kind of inbound event.
type EventType string

const (
	// EventText is a plain text message or slash command.
	EventText EventType = "text"

	// EventCallback is an inline-button press carrying an action identifier.
	EventCallback EventType = "callback"
)

// Action identifiers carried by inline buttons. Fixed wire values: the
// review keyboard and the callback router both key on these.
const (
	ActionApprove     = "approve"
	ActionRegen       = "regen"
	ActionEdit        = "edit"
	ActionImage       = "image"
	ActionRegenImage  = "regen_image"
	ActionRemoveImage = "remove_image"
)

// Channel is the interface every chat transport must implement.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram", "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send sends a message to the given chat, optionally with buttons.
	Send(ctx context.Context, to string, msg *OutgoingMessage) error

	// SendPhoto sends an image with a caption to the given chat,
	// optionally with buttons.
	SendPhoto(ctx context.Context, to string, photo *PhotoMessage) error

	// AckCallback acknowledges a button press so the client stops its
	// progress indicator. Safe to call for channels without callbacks.
	AckCallback(ctx context.Context, callbackID, text string) error

	// Receive returns the stream of inbound events.
	Receive() <-chan *Event

	// IsConnected reports whether the channel is connected.
	IsConnected() bool
}

// Event is an inbound message or button press from any channel.
type Event struct {
	// ID is the platform message or callback identifier.
	ID string

	// Channel identifies the source transport.
	Channel string

	// From is the sender identifier used by the access guard.
	From string

	// FromName is the sender display name, when available.
	FromName string

	// ChatID is the conversation the event arrived in.
	ChatID string

	// Type distinguishes text from button presses.
	Type EventType

	// Text is the message text (EventText).
	Text string

	// Action is the button action identifier (EventCallback).
	Action string

	// CallbackID is the platform token used to acknowledge a callback.
	CallbackID string

	// Timestamp is when the event was sent.
	Timestamp time.Time
}

// Button is one inline keyboard button.
type Button struct {
	// Label is the visible button text.
	Label string

	// Action is the fixed action identifier delivered back on press.
	Action string
}

// OutgoingMessage is a text reply, optionally with an inline keyboard.
type OutgoingMessage struct {
	// Text is the message body.
	Text string

	// Buttons is the inline keyboard, one row per inner slice.
	Buttons [][]Button

	// Menu is a persistent reply keyboard (quick actions below the input
	// field). Ignored by channels without reply keyboards.
	Menu [][]string
}

// PhotoMessage is an image with caption, optionally with a keyboard.
type PhotoMessage struct {
	// Data is the raw image payload.
	Data []byte

	// Filename names the upload (platforms require one).
	Filename string

	// Caption is the text shown with the image.
	Caption string

	// Buttons is the inline keyboard, one row per inner slice.
	Buttons [][]Button
}

// ErrChannelDisconnected is returned by send operations on a channel
// that is not connected.
var ErrChannelDisconnected = fmt.Errorf("channel is not connected")

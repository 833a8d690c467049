package whatsapp

import (
	"context"
	"strings"
	"time"
)

// Event is a single inbound message or notification delivered by a client.
// It is plain data; media payloads are fetched through the owning Client.
type Event struct {
	ID           string    `json:"id"`
	From         string    `json:"from"` // e.g. "6281234@c.us"
	PushName     string    `json:"pushname"`
	Session      string    `json:"session"`
	Body         string    `json:"body"`
	Caption      string    `json:"caption"`
	Type         string    `json:"type"` // chat, image, video, audio, document, location, ptt
	Mimetype     string    `json:"mimetype"`
	Filename     string    `json:"filename"`
	Latitude     float64   `json:"lat,omitempty"`
	Longitude    float64   `json:"lng,omitempty"`
	LocationName string    `json:"loc_name,omitempty"`
	IsGroup      bool      `json:"is_group"`
	IsStatus     bool      `json:"is_status"`
	IsStory      bool      `json:"is_story"`
	IsVoice      bool      `json:"is_voice"`
	IsLocation   bool      `json:"is_location"`
	Timestamp    time.Time `json:"timestamp"`
}

// SenderNumber strips the JID suffix: "6281234@c.us" -> "6281234".
func (e Event) SenderNumber() string {
	if i := strings.IndexByte(e.From, '@'); i >= 0 {
		return e.From[:i]
	}
	return e.From
}

// IsChannel reports whether the event comes from a broadcast or status
// channel rather than a direct conversation.
func (e Event) IsChannel() bool {
	from := strings.ToLower(e.From)
	return strings.Contains(from, "@broadcast") ||
		strings.Contains(from, "status@") ||
		(strings.Contains(from, "@c.us") && e.IsStatus)
}

// Empty reports whether the event carries no processable content at all.
func (e Event) Empty() bool {
	return e.Body == "" && e.Caption == "" && !e.IsLocation && e.Mimetype == "" && !e.IsVoice
}

// Chat groups unread events per conversation, mirroring the client's
// unread-sync shape.
type Chat struct {
	Messages []Event `json:"messages"`
}

// Client is the WhatsApp connection capability consumed by the core.
// Implementations wrap a concrete protocol client; the pipeline and
// lifecycle never see the underlying transport.
type Client interface {
	// OnStateChange registers a handler for connection-state notifications.
	OnStateChange(handler func(state string))

	// OnMessage registers the inbound event handler.
	OnMessage(handler func(evt Event))

	// SendText delivers a text message to the given recipient.
	SendText(ctx context.Context, to string, body string) error

	// DownloadMedia fetches the raw bytes of a voice or media event.
	DownloadMedia(ctx context.Context, evt Event) ([]byte, error)

	// DecryptFile fetches and decrypts a generic media attachment.
	DecryptFile(ctx context.Context, evt Event) ([]byte, error)

	// GetAllUnreadMessages returns events received while unprocessed.
	GetAllUnreadMessages(ctx context.Context) ([]Chat, error)

	// Logout terminates the authenticated session.
	Logout(ctx context.Context) error

	// RestartService tears the connection down and brings it back up,
	// typically to force a fresh pairing after logout.
	RestartService(ctx context.Context) error

	// IsConnected reports current connectivity.
	IsConnected() bool
}

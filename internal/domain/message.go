package domain

import "time"

// Message kind values persisted in Message.Type.
const (
	MessageText      = "text"
	MessageImage     = "image"
	MessageVideo     = "video"
	MessageAudio     = "audio"
	MessageDocument  = "document"
	MessageVoiceNote = "voice_note"
	MessageLocation  = "location"
)

// Message is one inbound WhatsApp exchange. Rows are immutable once created;
// exactly one row per processed inbound event.
type Message struct {
	ID        int64     `json:"id,string" form:"id"`
	SessionID int64     `gorm:"index" json:"session_id,string" form:"session_id"`
	Sender    string    `gorm:"index" json:"sender" form:"sender"`
	Content   *string   `json:"content" form:"content"`
	Reply     *string   `json:"reply" form:"reply"`
	MediaUrl  *string   `json:"media_url" form:"media_url"`
	Type      string    `json:"type" form:"type"`
	Timestamp time.Time `json:"timestamp" form:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (Message) TableName() string {
	return "wa_message"
}

package domain

import "time"

// Session status values. External client connection states are mapped onto
// this set by MapClientState; unmapped states pass through unchanged.
const (
	SessionInitializing = "INITIALIZING"
	SessionQrGenerated  = "QR_CODE_GENERATED"
	SessionAuthed       = "AUTHENTICATED"
	SessionDisconnected = "DISCONNECTED"
)

// MapClientState converts a client-reported connection state to a session
// status. Unknown values are stored as-is.
func MapClientState(state string) string {
	switch state {
	case "CONNECTED":
		return SessionAuthed
	case "TIMEOUT", "CONFLICT":
		return SessionDisconnected
	default:
		return state
	}
}

// Session is one logical WhatsApp connection identified by a unique name.
type Session struct {
	ID          int64     `json:"id,string" form:"id"`
	UserID      int64     `gorm:"index" json:"user_id,string" form:"user_id"`
	SessionName string    `gorm:"uniqueIndex" json:"session_name" form:"session_name"`
	Status      string    `json:"status" form:"status"`
	QrPath      string    `json:"qr_path" form:"qr_path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Session) TableName() string {
	return "wa_session"
}

package domain

import "time"

// ApiKey is a bearer credential for the HTTP API. Login tokens and manually
// issued keys both live here; middleware checks IsActive and ExpiresAt.
type ApiKey struct {
	ID        int64     `json:"id,string" form:"id"`
	UserID    int64     `gorm:"index" json:"user_id,string" form:"user_id"`
	Name      string    `json:"name" form:"name"`
	Key       string    `gorm:"uniqueIndex" json:"key" form:"key"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	ExpiresAt time.Time `json:"expires_at" form:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (ApiKey) TableName() string {
	return "wa_api_key"
}

// Valid reports whether the key can still authenticate requests.
func (k *ApiKey) Valid(now time.Time) bool {
	return k.IsActive && now.Before(k.ExpiresAt)
}

package domain

import "time"

// User is the owner of one or more WhatsApp sessions. Users are created
// lazily the first time a sender phone number is seen.
type User struct {
	ID        int64     `json:"id,string" form:"id"`
	Sender    string    `gorm:"uniqueIndex" json:"sender" form:"sender"`
	Username  string    `json:"username" form:"username"`
	Email     string    `json:"email" form:"email"`
	Password  string    `json:"-" form:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "wa_user"
}

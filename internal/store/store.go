package store

import (
	"context"
	"errors"

	"github.com/talkincode/wabridge/internal/domain"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// UserRepository handles database operations for users
type UserRepository interface {
	// GetBySender retrieves a user by phone-number natural key
	GetBySender(ctx context.Context, sender string) (*domain.User, error)

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by login name
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Create inserts a new user
	Create(ctx context.Context, user *domain.User) error

	// Update persists changed user fields
	Update(ctx context.Context, user *domain.User) error

	// List retrieves all users
	List(ctx context.Context) ([]domain.User, error)
}

// SessionRepository handles database operations for sessions
type SessionRepository interface {
	// GetByName retrieves a session by its unique name
	GetByName(ctx context.Context, name string) (*domain.Session, error)

	// Create inserts a new session
	Create(ctx context.Context, sess *domain.Session) error

	// UpsertStatus updates status and updatedAt for a session name,
	// creating the row (owned by userID) on first transition
	UpsertStatus(ctx context.Context, name string, userID int64, status string) error

	// UpdateQrPath records the rendered QR image path
	UpdateQrPath(ctx context.Context, name string, qrPath string) error

	// Delete removes a session row by name
	Delete(ctx context.Context, name string) error
}

// MessageRepository handles database operations for message history
type MessageRepository interface {
	// Create inserts a new message row
	Create(ctx context.Context, msg *domain.Message) error

	// ListBySession retrieves messages for a session id
	ListBySession(ctx context.Context, sessionID int64) ([]domain.Message, error)

	// ListBySender retrieves messages for a sender phone number
	ListBySender(ctx context.Context, sender string) ([]domain.Message, error)

	// DeleteBySession removes all messages of a session (setup-failure cleanup)
	DeleteBySession(ctx context.Context, sessionID int64) error
}

// ApiKeyRepository handles database operations for API credentials
type ApiKeyRepository interface {
	// GetByKey retrieves a key row by its token value
	GetByKey(ctx context.Context, key string) (*domain.ApiKey, error)

	// Create inserts a new key
	Create(ctx context.Context, key *domain.ApiKey) error
}

// Database bundles the repositories consumed by the pipeline and HTTP layer.
type Database interface {
	Users() UserRepository
	Sessions() SessionRepository
	Messages() MessageRepository
	ApiKeys() ApiKeyRepository
}

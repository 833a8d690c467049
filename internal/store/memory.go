package store

import (
	"context"
	"sync"
	"time"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/pkg/common"
)

// MemoryDatabase is an in-memory Database used by tests and by the service
// when no relational store is configured.
type MemoryDatabase struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	sessions map[string]*domain.Session
	messages []domain.Message
	apikeys  map[string]*domain.ApiKey
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:    make(map[int64]*domain.User),
		sessions: make(map[string]*domain.Session),
		apikeys:  make(map[string]*domain.ApiKey),
	}
}

func (m *MemoryDatabase) Users() UserRepository       { return (*memUserRepo)(m) }
func (m *MemoryDatabase) Sessions() SessionRepository { return (*memSessionRepo)(m) }
func (m *MemoryDatabase) Messages() MessageRepository { return (*memMessageRepo)(m) }
func (m *MemoryDatabase) ApiKeys() ApiKeyRepository   { return (*memApiKeyRepo)(m) }

type memUserRepo MemoryDatabase

func (r *memUserRepo) GetBySender(ctx context.Context, sender string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Sender == sender {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = common.UUID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

type memSessionRepo MemoryDatabase

func (r *memSessionRepo) GetByName(ctx context.Context, name string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[name]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memSessionRepo) Create(ctx context.Context, sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess.ID == 0 {
		sess.ID = common.UUID()
	}
	if sess.Status == "" {
		sess.Status = domain.SessionInitializing
	}
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	cp := *sess
	r.sessions[sess.SessionName] = &cp
	return nil
}

func (r *memSessionRepo) UpsertStatus(ctx context.Context, name string, userID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		s.Status = status
		s.UpdatedAt = time.Now()
		return nil
	}
	now := time.Now()
	r.sessions[name] = &domain.Session{
		ID:          common.UUID(),
		UserID:      userID,
		SessionName: name,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (r *memSessionRepo) UpdateQrPath(ctx context.Context, name string, qrPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		s.QrPath = qrPath
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
	return nil
}

type memMessageRepo MemoryDatabase

func (r *memMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == 0 {
		msg.ID = common.UUID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepo) ListBySession(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) ListBySender(ctx context.Context, sender string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.Sender == sender {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) DeleteBySession(ctx context.Context, sessionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

type memApiKeyRepo MemoryDatabase

func (r *memApiKeyRepo) GetByKey(ctx context.Context, key string) (*domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.apikeys[key]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memApiKeyRepo) Create(ctx context.Context, key *domain.ApiKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key.ID == 0 {
		key.ID = common.UUID()
	}
	key.CreatedAt = time.Now()
	cp := *key
	r.apikeys[key.Key] = &cp
	return nil
}

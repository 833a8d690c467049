package store

import (
	"context"
	"errors"
	"time"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/pkg/common"
	"gorm.io/gorm"
)

// GormDatabase implements Database over a gorm connection.
type GormDatabase struct {
	db       *gorm.DB
	users    *gormUserRepository
	sessions *gormSessionRepository
	messages *gormMessageRepository
	apikeys  *gormApiKeyRepository
}

func NewGormDatabase(db *gorm.DB) *GormDatabase {
	return &GormDatabase{
		db:       db,
		users:    &gormUserRepository{db: db},
		sessions: &gormSessionRepository{db: db},
		messages: &gormMessageRepository{db: db},
		apikeys:  &gormApiKeyRepository{db: db},
	}
}

func (g *GormDatabase) Users() UserRepository       { return g.users }
func (g *GormDatabase) Sessions() SessionRepository { return g.sessions }
func (g *GormDatabase) Messages() MessageRepository { return g.messages }
func (g *GormDatabase) ApiKeys() ApiKeyRepository   { return g.apikeys }

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) GetBySender(ctx context.Context, sender string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("sender = ?", sender).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == 0 {
		user.ID = common.UUID()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *gormUserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *gormUserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Find(&users).Error
	return users, err
}

type gormSessionRepository struct {
	db *gorm.DB
}

func (r *gormSessionRepository) GetByName(ctx context.Context, name string) (*domain.Session, error) {
	var sess domain.Session
	err := r.db.WithContext(ctx).Where("session_name = ?", name).First(&sess).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sess, nil
}

func (r *gormSessionRepository) Create(ctx context.Context, sess *domain.Session) error {
	if sess.ID == 0 {
		sess.ID = common.UUID()
	}
	if sess.Status == "" {
		sess.Status = domain.SessionInitializing
	}
	return r.db.WithContext(ctx).Create(sess).Error
}

func (r *gormSessionRepository) UpsertStatus(ctx context.Context, name string, userID int64, status string) error {
	var sess domain.Session
	err := r.db.WithContext(ctx).Where("session_name = ?", name).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.Create(ctx, &domain.Session{
			SessionName: name,
			UserID:      userID,
			Status:      status,
		})
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("session_name = ?", name).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *gormSessionRepository) UpdateQrPath(ctx context.Context, name string, qrPath string) error {
	return r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("session_name = ?", name).
		Updates(map[string]interface{}{"qr_path": qrPath, "updated_at": time.Now()}).Error
}

func (r *gormSessionRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("session_name = ?", name).Delete(&domain.Session{}).Error
}

type gormMessageRepository struct {
	db *gorm.DB
}

func (r *gormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == 0 {
		msg.ID = common.UUID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *gormMessageRepository) ListBySession(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("timestamp").Find(&msgs).Error
	return msgs, err
}

func (r *gormMessageRepository) ListBySender(ctx context.Context, sender string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).Where("sender = ?", sender).Order("timestamp").Find(&msgs).Error
	return msgs, err
}

func (r *gormMessageRepository) DeleteBySession(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&domain.Message{}).Error
}

type gormApiKeyRepository struct {
	db *gorm.DB
}

func (r *gormApiKeyRepository) GetByKey(ctx context.Context, key string) (*domain.ApiKey, error) {
	var ak domain.ApiKey
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&ak).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &ak, nil
}

func (r *gormApiKeyRepository) Create(ctx context.Context, key *domain.ApiKey) error {
	if key.ID == 0 {
		key.ID = common.UUID()
	}
	return r.db.WithContext(ctx).Create(key).Error
}

// Package users holds the administrative side of the service: admin user
// records with argon2id password hashes and the API keys that authorize
// data-plane writes.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

// User is an administrative account. Password is stored as an argon2id
// PHC string, never in the clear.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`

	APIKeys []APIKey `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"apiKeys,omitempty"`
}

func (User) TableName() string {
	return "admin_user"
}

// APIKey is one issued key. Only the HMAC of the raw key is stored; the
// raw key is shown once at creation and cannot be recovered.
type APIKey struct {
	KeyID     uuid.UUID `gorm:"type:uuid;primaryKey;column:key_id" json:"keyId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"-"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	KeyHash   string    `gorm:"uniqueIndex;not null;column:key_hash" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (APIKey) TableName() string {
	return "admin_api_key"
}

// Repo is the persistence surface the auth middleware and the management
// handlers consume. Lookups that find nothing return (nil, nil).
type Repo interface {
	Get(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Save(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, username string) error
	SaveAPIKey(ctx context.Context, username string, key *APIKey) error
	DeleteAPIKey(ctx context.Context, username string, keyID uuid.UUID) error
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewRepo migrates the user tables and returns the repository.
func NewRepo(db *gorm.DB, log *logger.Logger) (Repo, error) {
	if db == nil {
		return nil, fmt.Errorf("users: db required")
	}
	if log == nil {
		return nil, fmt.Errorf("users: logger required")
	}
	if err := db.AutoMigrate(&User{}, &APIKey{}); err != nil {
		return nil, fmt.Errorf("users: migrate: %w", err)
	}
	return &userRepo{db: db, log: log.With("repo", "UserRepo")}, nil
}

func (r *userRepo) Get(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Preload("APIKeys").
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context) ([]*User, error) {
	var results []*User
	err := r.db.WithContext(ctx).
		Preload("APIKeys").
		Order("username").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) Save(ctx context.Context, user *User) error {
	if user.Username == "" {
		return fmt.Errorf("users: username required")
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("users: password hash required")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}
	r.log.Info("user created", "username", user.Username)
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *User) error {
	res := r.db.WithContext(ctx).
		Model(&User{}).
		Where("username = ?", user.Username).
		Updates(map[string]any{"password_hash": user.PasswordHash})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("users: user %q not found", user.Username)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, username string) error {
	user, err := r.Get(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("users: user %q not found", username)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&APIKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, "id = ?", user.ID).Error
	})
}

func (r *userRepo) SaveAPIKey(ctx context.Context, username string, key *APIKey) error {
	user, err := r.Get(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("users: user %q not found", username)
	}
	if key.KeyID == uuid.Nil {
		key.KeyID = uuid.New()
	}
	key.UserID = user.ID
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return err
	}
	r.log.Info("api key created", "username", username, "keyId", key.KeyID, "name", key.Name)
	return nil
}

func (r *userRepo) DeleteAPIKey(ctx context.Context, username string, keyID uuid.UUID) error {
	user, err := r.Get(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("users: user %q not found", username)
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND key_id = ?", user.ID, keyID).
		Delete(&APIKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("users: api key %s not found for %q", keyID, username)
	}
	return nil
}

func (r *userRepo) GetByAPIKeyHash(ctx context.Context, keyHash string) (*User, error) {
	var key APIKey
	err := r.db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.WithContext(ctx).
		Preload("APIKeys").
		Where("id = ?", key.UserID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"hrportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, role string, page, limit int) ([]model.User, int64, error)

	SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error
	// ConsumeRefreshToken deletes the token and returns it. Expired or unknown tokens yield ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translateCreateError(GetDB(ctx, r.db).Create(user).Error)
}

func (r *userRepository) first(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := GetDB(ctx, r.db).Take(&user, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) List(ctx context.Context, role string, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	count := db.Model(&model.User{})
	fetch := db.Order("created_at DESC")
	if role != "" {
		count = count.Where("role = ?", role)
		fetch = fetch.Where("role = ?", role)
	}

	if err := count.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(fetch, page, limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *userRepository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	db := GetDB(ctx, r.db)
	err := db.Take(&rt, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res := db.Where("id = ?", rt.ID).Delete(&model.RefreshToken{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || now.After(rt.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &rt, nil
}

func (r *userRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error
}

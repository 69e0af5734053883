package repository

import (
	"context"
	"errors"

	"nfa-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenRepository persists issued session tokens so they can be listed and
// revoked individually, per user, or globally.
type TokenRepository interface {
	Create(ctx context.Context, token *model.SessionToken) error
	Get(ctx context.Context, token string) (*model.SessionToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.SessionToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new instance of TokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.SessionToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *tokenRepository) Get(ctx context.Context, token string) (*model.SessionToken, error) {
	var st model.SessionToken
	err := GetDB(ctx, r.db).First(&st, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (r *tokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.SessionToken, error) {
	var tokens []model.SessionToken
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("created_at desc").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) Delete(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.SessionToken{}).Error
}

func (r *tokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&model.SessionToken{}).Error
}

func (r *tokenRepository) DeleteAll(ctx context.Context) error {
	return GetDB(ctx, r.db).Where("1 = 1").Delete(&model.SessionToken{}).Error
}

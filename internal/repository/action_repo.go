package repository

import (
	"context"
	"errors"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActionRepository defines the interface for data access of ApproverAction rows.
type ActionRepository interface {
	Insert(ctx context.Context, action *model.ApproverAction) error
	Get(ctx context.Context, requestID, approverID uuid.UUID) (*model.ApproverAction, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ApproverAction, error)
	DeleteByRequest(ctx context.Context, requestID uuid.UUID) error
}

type actionRepository struct {
	db *gorm.DB
}

// NewActionRepository returns a new instance of ActionRepository
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

// Insert creates the stage action. The unique index on
// (request_id, approver_id) makes this the authoritative at-most-once guard:
// a concurrent duplicate surfaces as gorm.ErrDuplicatedKey and is translated
// to the Conflict taxonomy error.
func (r *actionRepository) Insert(ctx context.Context, action *model.ApproverAction) error {
	if err := GetDB(ctx, r.db).Create(action).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("action already recorded for this approval stage")
		}
		return err
	}
	return nil
}

func (r *actionRepository) Get(ctx context.Context, requestID, approverID uuid.UUID) (*model.ApproverAction, error) {
	var action model.ApproverAction
	err := GetDB(ctx, r.db).
		Where("request_id = ? AND approver_id = ?", requestID, approverID).
		First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ApproverAction, error) {
	var actions []model.ApproverAction
	if err := GetDB(ctx, r.db).Where("request_id = ?", requestID).Order("created_at asc").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *actionRepository) DeleteByRequest(ctx context.Context, requestID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("request_id = ?", requestID).Delete(&model.ApproverAction{}).Error
}

package repository

import (
	"context"

	"nfa-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestRepository defines the interface for data access of Request entities
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context) ([]model.Request, error)
	ListByInitiator(ctx context.Context, initiatorID uuid.UUID) ([]model.Request, error)
	Save(ctx context.Context, req *model.Request) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountInvolving(ctx context.Context, userID uuid.UUID) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new instance of RequestRepository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context) ([]model.Request, error) {
	var reqs []model.Request
	if err := GetDB(ctx, r.db).Order("created_at desc").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) ListByInitiator(ctx context.Context, initiatorID uuid.UUID) ([]model.Request, error) {
	var reqs []model.Request
	if err := GetDB(ctx, r.db).Where("initiator_id = ?", initiatorID).Order("created_at desc").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) Save(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Request{}).Error
}

// CountInvolving counts requests where the user is initiator or supervisor.
// Used to refuse user deletion while dependent requests exist.
func (r *requestRepository) CountInvolving(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("initiator_id = ? OR supervisor_id = ?", userID, userID).
		Count(&total).Error
	return total, err
}

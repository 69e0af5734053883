package repository

import (
	"context"

	"nfa-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository appends to and reads the structured request event trail.
type EventRepository interface {
	Append(ctx context.Context, event *model.RequestEvent) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.RequestEvent, error)
	DeleteByRequest(ctx context.Context, requestID uuid.UUID) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a new instance of EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, event *model.RequestEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *eventRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.RequestEvent, error) {
	var events []model.RequestEvent
	if err := GetDB(ctx, r.db).Where("request_id = ?", requestID).Order("created_at asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) DeleteByRequest(ctx context.Context, requestID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("request_id = ?", requestID).Delete(&model.RequestEvent{}).Error
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kopma-dev/kopma-api/internal/models"
)

// EventFilter defines pagination for the event schedule.
type EventFilter struct {
	Page     int
	PageSize int
}

// EventRepository persists cooperative events and member check-ins.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (models.Event, error)
	List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Event, error)
	Delete(ctx context.Context, id uint) error

	RecordAttendance(ctx context.Context, attendance *models.EventAttendance) error
	HasAttended(ctx context.Context, eventID, userID uint) (bool, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository constructs the event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Preload("Attendance").First(&event, id).Error; err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Attendance").Order("created_at DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Event, error) {
	tx := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return models.Event{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.Event{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", id).
		Delete(&models.EventAttendance{}).Error; err != nil {
		return err
	}

	tx := r.db.WithContext(ctx).Delete(&models.Event{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *eventRepository) RecordAttendance(ctx context.Context, attendance *models.EventAttendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}

func (r *eventRepository) HasAttended(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventAttendance{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var eventSortFields = map[string]string{
	"title":     "events.title",
	"status":    "events.status",
	"eventDate": "events.event_date",
	"createdAt": "events.created_at",
	"updatedAt": "events.updated_at",
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(event).Error
}

// GetScoped loads an event only if scope matches it
func (r *EventRepository) GetScoped(ctx context.Context, scope policy.Scope, id uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	query := GetDB(ctx, r.db).Model(&domain.Event{}).Where("events.id = ?", id)
	query = ApplyScope(query, scope)
	if err := query.First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByContractID returns the event of a contract, or gorm.ErrRecordNotFound
func (r *EventRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	err := GetDB(ctx, r.db).First(&event, "contract_id = ?", contractID).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ExistsForContract reports whether the contract already carries an event
func (r *EventRepository) ExistsForContract(ctx context.Context, contractID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&domain.Event{}).Where("contract_id = ?", contractID).Count(&count).Error
	return count > 0, err
}

// Update writes only the given columns
func (r *EventRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&domain.Event{}).Where("id = ?", id).Updates(updates).Error
}

// MoveToClient follows a contract that changed client
func (r *EventRepository) MoveToClient(ctx context.Context, contractID, clientID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&domain.Event{}).
		Where("contract_id = ?", contractID).
		Update("client_id", clientID).Error
}

func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&domain.Event{}, "id = ?", id).Error
}

func (r *EventRepository) List(ctx context.Context, scope policy.Scope, filters domain.EventFilters, sort SortConfig, page, pageSize int) ([]domain.Event, int64, error) {
	var events []domain.Event
	var total int64

	query := ApplyScope(GetDB(ctx, r.db).Model(&domain.Event{}), scope)

	if filters.Title != "" {
		query = query.Where("LOWER(events.title) LIKE ?", likePattern(filters.Title))
	}
	if filters.Status != "" {
		query = query.Where("LOWER(events.status) LIKE ?", likePattern(filters.Status))
	}
	if filters.EventDateGte != nil {
		query = query.Where("events.event_date >= ?", *filters.EventDateGte)
	}
	if filters.EventDateLte != nil {
		query = query.Where("events.event_date <= ?", *filters.EventDateLte)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, eventSortFields, "events.created_at")).
		Find(&events).Error

	return events, total, err
}

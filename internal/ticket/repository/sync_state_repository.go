package repository

import (
	"time"

	"gorm.io/gorm"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// syncStateRepository implements SyncStateRepository using GORM
type syncStateRepository struct {
	db *gorm.DB
}

// NewSyncStateRepository creates a new GORM-backed SyncStateRepository.
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) Get(key string) (string, error) {
	var state ticketdomain.SyncState
	err := r.db.Where("key = ?", key).First(&state).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return state.Value, nil
}

func (r *syncStateRepository) Set(key, value string) error {
	var state ticketdomain.SyncState
	err := r.db.Where("key = ?", key).First(&state).Error

	now := time.Now().UTC()
	if err == gorm.ErrRecordNotFound {
		state = ticketdomain.SyncState{Key: key, Value: value, UpdatedAt: now}
		return r.db.Create(&state).Error
	} else if err != nil {
		return err
	}

	state.Value = value
	state.UpdatedAt = now
	return r.db.Save(&state).Error
}

func (r *syncStateRepository) Delete(key string) error {
	return r.db.Where("key = ?", key).Delete(&ticketdomain.SyncState{}).Error
}

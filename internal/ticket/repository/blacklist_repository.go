package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// blacklistRepository implements BlacklistRepository using GORM
type blacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository creates a new GORM-backed BlacklistRepository.
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) IsBlacklisted(email string) (bool, error) {
	var entry ticketdomain.BlacklistedSender
	err := r.db.Where("email = ?", strings.ToLower(email)).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *blacklistRepository) List() ([]*ticketdomain.BlacklistedSender, error) {
	var entries []*ticketdomain.BlacklistedSender
	err := r.db.Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *blacklistRepository) Add(email string) (*ticketdomain.BlacklistedSender, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing ticketdomain.BlacklistedSender
	err := r.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	entry := ticketdomain.BlacklistedSender{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *blacklistRepository) Remove(email string) error {
	return r.db.Where("email = ?", strings.ToLower(email)).Delete(&ticketdomain.BlacklistedSender{}).Error
}

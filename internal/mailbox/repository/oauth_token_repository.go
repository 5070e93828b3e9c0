package repository

import (
	"time"

	"gorm.io/gorm"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
)

// OAuthTokenRepository defines the interface for mailbox credential storage.
type OAuthTokenRepository interface {
	// Get returns the stored token for a provider, nil if not connected.
	Get(provider string) (*mailboxdomain.OAuthToken, error)
	// Save upserts the single token row for a provider.
	Save(token *mailboxdomain.OAuthToken) error
	// Delete disconnects the mailbox.
	Delete(provider string) error
}

type oauthTokenRepository struct {
	db *gorm.DB
}

// NewOAuthTokenRepository creates a new GORM-backed OAuthTokenRepository.
func NewOAuthTokenRepository(db *gorm.DB) OAuthTokenRepository {
	return &oauthTokenRepository{db: db}
}

func (r *oauthTokenRepository) Get(provider string) (*mailboxdomain.OAuthToken, error) {
	var token mailboxdomain.OAuthToken
	err := r.db.Where("provider = ?", provider).First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *oauthTokenRepository) Save(token *mailboxdomain.OAuthToken) error {
	var existing mailboxdomain.OAuthToken
	err := r.db.Where("provider = ?", token.Provider).First(&existing).Error

	now := time.Now().UTC()
	if err == gorm.ErrRecordNotFound {
		token.CreatedAt = now
		token.UpdatedAt = now
		return r.db.Create(token).Error
	} else if err != nil {
		return err
	}

	existing.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		existing.RefreshToken = token.RefreshToken
	}
	existing.Expiry = token.Expiry
	existing.UpdatedAt = now
	return r.db.Save(&existing).Error
}

func (r *oauthTokenRepository) Delete(provider string) error {
	return r.db.Where("provider = ?", provider).Delete(&mailboxdomain.OAuthToken{}).Error
}

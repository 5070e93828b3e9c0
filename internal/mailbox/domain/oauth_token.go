package domain

import "time"

// OAuthToken is the single-row credential store for the connected mailbox.
type OAuthToken struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Provider     string    `json:"provider" gorm:"default:google;index"`
	AccessToken  string    `json:"-" gorm:"type:text"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	Expiry       time.Time `json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

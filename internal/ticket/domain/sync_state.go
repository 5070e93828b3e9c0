package domain

import "time"

// Keys stored in the sync_states table. The watermark key belongs to the
// sync orchestrator; the signature key backs the settings surface.
const (
	SyncStateKeyGmailHistory = "gmail_history_id"
	SyncStateKeySignature    = "reply_signature"
)

// SyncState is a small key/value store for sync watermarks. Last write wins;
// the orchestrator is the only writer.
type SyncState struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// BlacklistedSender excludes an address from ticket creation. Managed
// through the blacklist endpoints, consulted read-only by sync.
type BlacklistedSender struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

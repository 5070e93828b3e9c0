package usecase

import (
	"time"

	"golang.org/x/oauth2"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	"ticketdesk-backend/internal/mailbox/repository"
)

const providerGoogle = "google"

// SessionSource turns the stored OAuth token row into per-call credentials,
// persisting refreshed access tokens back to the store so a refresh survives
// restarts.
type SessionSource struct {
	tokens repository.OAuthTokenRepository
}

func NewSessionSource(tokens repository.OAuthTokenRepository) *SessionSource {
	return &SessionSource{tokens: tokens}
}

// Credentials returns the mailbox credentials, or ErrMailboxNotConnected
// when no token has been stored yet.
func (s *SessionSource) Credentials() (mailboxdomain.Credentials, error) {
	row, err := s.tokens.Get(providerGoogle)
	if err != nil {
		return mailboxdomain.Credentials{}, err
	}
	if row == nil || row.RefreshToken == "" && row.AccessToken == "" {
		return mailboxdomain.Credentials{}, mailboxdomain.ErrMailboxNotConnected
	}

	return mailboxdomain.Credentials{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		OnRefresh: func(token *oauth2.Token) error {
			row.AccessToken = token.AccessToken
			if token.RefreshToken != "" {
				row.RefreshToken = token.RefreshToken
			}
			row.Expiry = token.Expiry
			row.UpdatedAt = time.Now().UTC()
			return s.tokens.Save(row)
		},
	}, nil
}

// Save stores a freshly exchanged token, replacing any previous session.
func (s *SessionSource) Save(token *oauth2.Token) error {
	now := time.Now().UTC()
	row := &mailboxdomain.OAuthToken{
		Provider:     providerGoogle,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.tokens.Save(row)
}

// Disconnect removes the stored session.
func (s *SessionSource) Disconnect() error {
	return s.tokens.Delete(providerGoogle)
}

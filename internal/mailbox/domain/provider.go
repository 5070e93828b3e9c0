package domain

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc persists a refreshed OAuth token.
type TokenUpdateFunc func(token *oauth2.Token) error

// Credentials is the live token pair handed to every provider call. The
// provider refreshes transparently and reports new tokens through OnRefresh;
// callers never observe a refresh beyond that callback.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	OnRefresh    TokenUpdateFunc
}

// ThreadPage is one page of thread listing results.
type ThreadPage struct {
	IDs []string
	// HitLimit is set when listing stopped because the caller's cap was
	// reached while more results remained.
	HitLimit bool
}

// MailProvider is the read/write contract against the remote mailbox.
// Implemented by pkg/gmail; faked in tests.
type MailProvider interface {
	// CurrentHistoryID returns the provider's current change-sequence
	// marker.
	CurrentHistoryID(ctx context.Context, creds Credentials) (uint64, error)

	// ListThreadIDs pages through a search until max results are collected
	// or the result set is exhausted. inboxOnly restricts to the INBOX
	// label.
	ListThreadIDs(ctx context.Context, creds Credentials, query string, inboxOnly bool, max int) (*ThreadPage, error)

	// ListChangedThreadIDs tails the change log from startHistoryID and
	// returns the deduplicated thread IDs touched by message or label
	// events on the inbox. Returns ErrHistoryExpired when the marker is too
	// old to resume from.
	ListChangedThreadIDs(ctx context.Context, creds Credentials, startHistoryID uint64) ([]string, error)

	// GetThread fetches a thread in metadata form (headers, labels,
	// snippets; no bodies). Returns ErrThreadNotFound for deleted threads.
	GetThread(ctx context.Context, creds Credentials, threadID string) (*Thread, error)

	// GetThreadDetail fetches a thread in full form with decoded bodies.
	GetThreadDetail(ctx context.Context, creds Credentials, threadID string) (*ThreadDetail, error)

	// SendMessage composes and sends a plain-text message. A non-empty
	// threadID threads it as a reply.
	SendMessage(ctx context.Context, creds Credentials, threadID, to, subject, body string) error
}

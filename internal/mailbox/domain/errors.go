package domain

import "errors"

// Error taxonomy of the mailbox gateway. The sync engine branches on these
// with errors.Is; everything else that comes out of the gateway is fatal.
var (
	// ErrMailboxNotConnected means no OAuth token has been stored yet. This
	// is an expected pre-setup state, not a system error.
	ErrMailboxNotConnected = errors.New("mailbox not connected")

	// ErrHistoryExpired means the stored history ID is too old for the
	// provider to resume from; the caller must fall back to a range sync.
	ErrHistoryExpired = errors.New("history id expired")

	// ErrThreadNotFound means the thread vanished between listing and fetch.
	// Callers skip the thread.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrTransient covers rate limits and server-side failures; safe to
	// retry, and during sync counted as a skip.
	ErrTransient = errors.New("transient mailbox error")

	// ErrSendRejected means the provider refused an outgoing message.
	ErrSendRejected = errors.New("send rejected")
)

package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// TriageResult is the outcome of scoring one conversation.
type TriageResult struct {
	Category       string                      `json:"category"`
	TicketCategory ticketdomain.TicketCategory `json:"ticket_category"`
	Priority       ticketdomain.Priority       `json:"priority"`
	Urgency        int                         `json:"urgency"`    // 1..5
	Confidence     int                         `json:"confidence"` // 0..100
	Reasons        []string                    `json:"reasons"`
	Summary        string                      `json:"summary"`
}

// TriageService scores a conversation's category and urgency. Implementations
// must not fail for expected conditions; when a model is unavailable they
// degrade to rule-based output.
type TriageService interface {
	Triage(ctx context.Context, subject, body string) *TriageResult
}

// DraftService produces a suggested reply for a conversation.
type DraftService interface {
	DraftReply(ctx context.Context, subject, body string, category ticketdomain.TicketCategory) (draftSubject, draftBody string)
}

// ContentHash fingerprints the triage input so unchanged conversations are
// not rescored.
func ContentHash(subject, body string) string {
	h := sha256.Sum256([]byte(subject + "\n" + body))
	return hex.EncodeToString(h[:])
}

package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	mailboxusecase "ticketdesk-backend/internal/mailbox/usecase"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/pkg/ai"
)

// TicketService is the board-facing application layer: listing, status and
// priority overrides, replies, drafts, triage on demand, and the
// administrative surfaces.
type TicketService struct {
	tickets   repository.TicketRepository
	blacklist repository.BlacklistRepository
	syncState repository.SyncStateRepository
	provider  mailboxdomain.MailProvider
	session   *mailboxusecase.SessionSource
	assistant *ai.Service
}

func NewTicketService(
	tickets repository.TicketRepository,
	blacklist repository.BlacklistRepository,
	syncState repository.SyncStateRepository,
	provider mailboxdomain.MailProvider,
	session *mailboxusecase.SessionSource,
	assistant *ai.Service,
) *TicketService {
	return &TicketService{
		tickets:   tickets,
		blacklist: blacklist,
		syncState: syncState,
		provider:  provider,
		session:   session,
		assistant: assistant,
	}
}

func (s *TicketService) List(q repository.TicketQuery) ([]*ticketdomain.Ticket, int64, error) {
	return s.tickets.List(q)
}

func (s *TicketService) Counts() (*repository.TabCounts, error) {
	return s.tickets.Counts(time.Now().UTC())
}

func (s *TicketService) Get(threadID string) (*ticketdomain.Ticket, error) {
	ticket, err := s.tickets.Get(threadID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ticketdomain.ErrTicketNotFound
	}
	return ticket, nil
}

// ThreadDetail fetches the full conversation from the mailbox.
func (s *TicketService) ThreadDetail(ctx context.Context, threadID string) (*mailboxdomain.ThreadDetail, error) {
	creds, err := s.session.Credentials()
	if err != nil {
		return nil, err
	}
	return s.provider.GetThreadDetail(ctx, creds, threadID)
}

// SetStatus applies a manual status override. A transition into RESPONDED or
// NO_REPLY_NEEDED clears the awaiting flag so the board and reminders agree
// with the override.
func (s *TicketService) SetStatus(threadID string, status ticketdomain.TicketStatus) (*ticketdomain.Ticket, error) {
	if !ticketdomain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ticketdomain.ErrInvalidStatus, status)
	}
	ticket, err := s.Get(threadID)
	if err != nil {
		return nil, err
	}

	ticket.Status = status
	if status == ticketdomain.StatusResponded || status == ticketdomain.StatusNoReplyNeeded {
		ticket.IsNotReplied = false
	}
	if err := s.tickets.Upsert(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// SetPriority changes the due-date policy input and recomputes the due date.
func (s *TicketService) SetPriority(threadID string, priority ticketdomain.Priority) (*ticketdomain.Ticket, error) {
	if !ticketdomain.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: %q", ticketdomain.ErrInvalidPriority, priority)
	}
	ticket, err := s.Get(threadID)
	if err != nil {
		return nil, err
	}

	ticket.Priority = priority
	ticket.RecomputeDueAt()
	if err := s.tickets.Upsert(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reply sends a response into the ticket's thread. The ticket is marked
// responded only after the provider accepts the message; a rejected send
// leaves the ticket untouched.
func (s *TicketService) Reply(ctx context.Context, threadID, to, subject, body string) (*ticketdomain.Ticket, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ticketdomain.ErrEmptyReply
	}
	ticket, err := s.Get(threadID)
	if err != nil {
		return nil, err
	}
	if to == "" {
		to = ticket.FromEmail
	}
	if to == "" {
		return nil, ticketdomain.ErrNoRecipient
	}
	if subject == "" {
		subject = replySubject(ticket.Subject)
	}

	if signature, sigErr := s.Signature(); sigErr == nil && signature != "" {
		body = body + "\n\n" + signature
	}

	creds, err := s.session.Credentials()
	if err != nil {
		return nil, err
	}
	if err := s.provider.SendMessage(ctx, creds, threadID, to, subject, body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ticket.Status = ticketdomain.StatusResponded
	ticket.IsNotReplied = false
	ticket.LastFromMe = true
	ticket.LastMessageAt = &now
	ticket.RecomputeDueAt()
	if err := s.tickets.Upsert(ticket); err != nil {
		// The message went out; surface the stale row rather than pretend
		// the send failed.
		log.Printf("[Tickets] reply sent but ticket %s not updated: %v", threadID, err)
		return ticket, nil
	}
	return ticket, nil
}

// Draft returns a suggested reply, cached until the ticket content changes.
func (s *TicketService) Draft(ctx context.Context, threadID string) (*ticketdomain.Ticket, error) {
	ticket, err := s.Get(threadID)
	if err != nil {
		return nil, err
	}

	hash := ai.ContentHash(ticket.Subject, ticket.Snippet)
	if ticket.AIDraftBody != "" && ticket.AISourceHash == hash {
		return ticket, nil
	}

	bodyContext := ticket.Snippet
	if detail, derr := s.ThreadDetail(ctx, threadID); derr == nil && len(detail.Messages) > 0 {
		bodyContext = detail.Messages[len(detail.Messages)-1].Body
	}

	draftSubject, draftBody := s.assistant.DraftReply(ctx, ticket.Subject, bodyContext, ticket.Category)
	now := time.Now().UTC()
	ticket.AIDraftSubject = draftSubject
	ticket.AIDraftBody = draftBody
	ticket.AIDraftUpdatedAt = &now
	if err := s.tickets.Upsert(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Classify runs triage on demand, bypassing the content-hash cache.
func (s *TicketService) Classify(ctx context.Context, threadID string) (*ticketdomain.Ticket, error) {
	ticket, err := s.Get(threadID)
	if err != nil {
		return nil, err
	}

	res := s.assistant.Triage(ctx, ticket.Subject, ticket.Snippet)
	now := time.Now().UTC()
	ticket.AICategory = res.Category
	ticket.AIUrgency = res.Urgency
	ticket.AIConfidence = res.Confidence
	ticket.AIReasons = strings.Join(res.Reasons, "; ")
	ticket.AISummary = res.Summary
	ticket.AISourceHash = ai.ContentHash(ticket.Subject, ticket.Snippet)
	ticket.AILastScoredAt = &now
	ticket.Category = res.TicketCategory
	ticket.Priority = res.Priority
	ticket.RecomputeDueAt()

	if err := s.tickets.Upsert(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ClearAll wipes every ticket and the sync watermark so the next run
// re-bootstraps from scratch.
func (s *TicketService) ClearAll() error {
	if err := s.tickets.DeleteAll(); err != nil {
		return err
	}
	return s.syncState.Delete(ticketdomain.SyncStateKeyGmailHistory)
}

// Signature returns the configured reply signature, empty when unset.
func (s *TicketService) Signature() (string, error) {
	return s.syncState.Get(ticketdomain.SyncStateKeySignature)
}

// SetSignature stores the reply signature appended to outgoing replies. An
// empty value clears it.
func (s *TicketService) SetSignature(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.syncState.Delete(ticketdomain.SyncStateKeySignature)
	}
	return s.syncState.Set(ticketdomain.SyncStateKeySignature, text)
}

func (s *TicketService) ListBlacklist() ([]*ticketdomain.BlacklistedSender, error) {
	return s.blacklist.List()
}

func (s *TicketService) AddToBlacklist(email string) (*ticketdomain.BlacklistedSender, error) {
	return s.blacklist.Add(email)
}

func (s *TicketService) RemoveFromBlacklist(email string) error {
	return s.blacklist.Remove(email)
}

func replySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return "Re: your enquiry"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

package usecase

import (
	"context"
	"strings"
	"time"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/pkg/ai"
)

const defaultSubject = "(no subject)"

// ReconcileOptions control per-thread behavior within one sync run.
type ReconcileOptions struct {
	// AwaitingOnly suppresses creation of tickets for threads that are not
	// currently awaiting a reply. Existing tickets are still updated.
	AwaitingOnly bool
	// AutoClassify runs triage on awaiting threads whose content changed.
	AutoClassify bool
}

// ThreadReconciler turns one thread's message list into authoritative ticket
// state. It stages writes through the repositories it is handed; the
// orchestrator owns the commit boundary.
type ThreadReconciler struct {
	classifier *DirectionClassifier
	triage     ai.TriageService
}

func NewThreadReconciler(classifier *DirectionClassifier, triage ai.TriageService) *ThreadReconciler {
	return &ThreadReconciler{
		classifier: classifier,
		triage:     triage,
	}
}

// Reconcile returns true when the ticket was created or updated, false when
// the thread was skipped (empty, blacklisted, or filtered by awaiting-only).
func (r *ThreadReconciler) Reconcile(ctx context.Context, thread *mailboxdomain.Thread, repos *repository.Repos, opts ReconcileOptions) (bool, error) {
	if thread == nil || len(thread.Messages) == 0 {
		return false, nil
	}

	// Track the latest inbound and outbound timestamps across the whole
	// thread. A trailing inbound after our reply reopens the thread even
	// when it is not the literal last message we classified.
	var latestInbound, latestOutbound *time.Time
	anyUnread := false
	for i := range thread.Messages {
		msg := &thread.Messages[i]
		ts := msg.InternalDate
		switch r.classifier.Classify(*msg) {
		case Outbound:
			if latestOutbound == nil || ts.After(*latestOutbound) {
				t := ts
				latestOutbound = &t
			}
		default:
			if latestInbound == nil || ts.After(*latestInbound) {
				t := ts
				latestInbound = &t
			}
		}
		if msg.HasLabel(mailboxdomain.LabelUnread) {
			anyUnread = true
		}
	}

	awaitingReply := latestInbound != nil &&
		(latestOutbound == nil || latestInbound.After(*latestOutbound))

	last := &thread.Messages[len(thread.Messages)-1]
	subject := last.Header("Subject")
	if subject == "" {
		subject = defaultSubject
	}
	fromName, fromEmail := mailboxdomain.ParseAddress(last.Header("From"))
	lastAt := last.InternalDate
	lastFromMe := r.classifier.Classify(*last) == Outbound

	if fromEmail != "" {
		blocked, err := repos.Blacklist.IsBlacklisted(fromEmail)
		if err != nil {
			return false, err
		}
		if blocked {
			return false, nil
		}
	}

	ticket, err := repos.Tickets.Get(thread.ID)
	if err != nil {
		return false, err
	}
	if ticket == nil {
		if opts.AwaitingOnly && !awaitingReply {
			return false, nil
		}
		ticket = &ticketdomain.Ticket{
			ThreadID: thread.ID,
			Status:   ticketdomain.StatusPending,
			Priority: ticketdomain.PriorityMedium,
			Category: ticketdomain.CategoryGeneral,
		}
	}
	if ticket.Priority == "" {
		ticket.Priority = ticketdomain.PriorityMedium
	}

	ticket.LastMessageID = last.ID
	ticket.Subject = subject
	ticket.Snippet = last.Snippet
	ticket.FromName = fromName
	ticket.FromEmail = fromEmail
	ticket.LastMessageAt = &lastAt
	ticket.LastFromMe = lastFromMe
	ticket.IsUnread = anyUnread
	ticket.IsNotReplied = awaitingReply
	ticket.RecomputeDueAt()

	// NO_REPLY_NEEDED is a human override and is never touched here.
	if awaitingReply && ticket.Status == ticketdomain.StatusResponded {
		ticket.Status = ticketdomain.StatusPending
	} else if !awaitingReply && ticket.Status != ticketdomain.StatusNoReplyNeeded {
		ticket.Status = ticketdomain.StatusResponded
		ticket.IsNotReplied = false
	}

	if opts.AutoClassify && awaitingReply && r.triage != nil {
		r.applyTriage(ctx, ticket)
	}

	if err := repos.Tickets.Upsert(ticket); err != nil {
		return false, err
	}
	return true, nil
}

// applyTriage rescores the ticket when its content hash changed. Triage
// never fails, so this cannot abort reconciliation.
func (r *ThreadReconciler) applyTriage(ctx context.Context, ticket *ticketdomain.Ticket) {
	hash := ai.ContentHash(ticket.Subject, ticket.Snippet)
	if hash == ticket.AISourceHash && ticket.AICategory != "" {
		return
	}

	res := r.triage.Triage(ctx, ticket.Subject, ticket.Snippet)
	now := time.Now().UTC()

	ticket.AICategory = res.Category
	ticket.AIUrgency = res.Urgency
	ticket.AIConfidence = res.Confidence
	ticket.AIReasons = strings.Join(res.Reasons, "; ")
	ticket.AISummary = res.Summary
	ticket.AISourceHash = hash
	ticket.AILastScoredAt = &now
	ticket.Category = res.TicketCategory
	ticket.Priority = res.Priority
	ticket.RecomputeDueAt()
}

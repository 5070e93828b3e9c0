package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

const draftPrompt = `You are drafting a reply on behalf of a property manager.
Write a short, professional reply to the email below. Acknowledge the issue,
state the next step, and do not invent facts. Plain text only, no signature.

Subject: %s

Body:
%s`

// draftTemplates are per-category fallback replies used when the model is
// unavailable.
var draftTemplates = map[ticketdomain.TicketCategory]string{
	ticketdomain.CategoryMaintenance: "Thanks for letting us know. We have logged the maintenance issue and will arrange a tradesperson to attend. We will confirm the appointment time with you shortly.",
	ticketdomain.CategoryRentArrears: "Thank you for your email. We have reviewed the payment records for your tenancy and will come back to you with the current balance and next steps shortly.",
	ticketdomain.CategoryLeasing:     "Thanks for reaching out about your lease. We are reviewing the details and will be in touch with the available options shortly.",
	ticketdomain.CategoryCompliance:  "Thank you for your email. We are reviewing the compliance requirements for the property and will confirm the arrangements with you shortly.",
	ticketdomain.CategorySales:       "Thank you for your enquiry. We will review the details and come back to you shortly.",
	ticketdomain.CategoryGeneral:     "Thank you for your email. We have received your message and will get back to you as soon as possible.",
}

// DraftReply returns a suggested reply subject and body. Model failures fall
// back to the category template, so a draft is always produced.
func (s *Service) DraftReply(ctx context.Context, subject, body string, category ticketdomain.TicketCategory) (string, string) {
	draftSubject := replySubject(subject)

	if s.model != nil && s.model.Enabled() {
		generated, err := s.model.GenerateContent(ctx, formatDraftPrompt(subject, body), false)
		if err == nil && strings.TrimSpace(generated) != "" {
			return draftSubject, strings.TrimSpace(generated)
		}
		if err != nil {
			log.Printf("[Triage] draft model call failed, using template: %v", err)
		}
	}

	template, ok := draftTemplates[category]
	if !ok {
		template = draftTemplates[ticketdomain.CategoryGeneral]
	}
	return draftSubject, template
}

func formatDraftPrompt(subject, body string) string {
	return fmt.Sprintf(draftPrompt, subject, truncate(body, 8000))
}

// replySubject prefixes "Re: " unless the subject already carries it.
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

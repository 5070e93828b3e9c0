package usecase

import (
	"strings"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
)

// Direction is the classified flow of a single message relative to us.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "OUTBOUND"
	}
	return "INBOUND"
}

// DirectionClassifier decides inbound vs outbound for a message. A message
// is outbound when it carries the provider's sent label or its From address
// belongs to the configured set of our own addresses.
type DirectionClassifier struct {
	ownAddresses map[string]struct{}
}

// NewDirectionClassifier builds a classifier over the given own addresses.
// Addresses are matched case-insensitively.
func NewDirectionClassifier(ownAddresses []string) *DirectionClassifier {
	own := make(map[string]struct{}, len(ownAddresses))
	for _, a := range ownAddresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			own[a] = struct{}{}
		}
	}
	return &DirectionClassifier{ownAddresses: own}
}

// Classify is pure and deterministic for a given message.
func (c *DirectionClassifier) Classify(msg mailboxdomain.ThreadMessage) Direction {
	if msg.HasLabel(mailboxdomain.LabelSent) {
		return Outbound
	}
	_, email := mailboxdomain.ParseAddress(msg.Header("From"))
	if email != "" {
		if _, ok := c.ownAddresses[email]; ok {
			return Outbound
		}
	}
	return Inbound
}

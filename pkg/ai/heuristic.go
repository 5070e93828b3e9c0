package ai

import (
	"fmt"
	"strings"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// Category labels produced by triage.
const (
	CategoryMaintenance  = "maintenance"
	CategoryCompliance   = "compliance"
	CategoryRentArrears  = "rent_arrears"
	CategoryLeaseRenewal = "lease_renewal"
	CategoryNoticeLegal  = "notice_legal"
	CategoryGeneral      = "general"
)

// urgency5Keywords force the urgency floor to 5 regardless of model output.
var urgency5Keywords = []string{
	"emergency", "urgent", "asap", "immediately", "flooding", "flood",
	"fire", "gas leak", "no heat", "no hot water", "burst pipe",
	"electrical hazard", "sewage", "break-in", "broken into",
}

// urgency4Keywords force the urgency floor to 4.
var urgency4Keywords = []string{
	"tribunal", "vcat", "breach", "notice to vacate", "overdue",
	"arrears", "complaint", "leak", "not working", "smoke alarm",
}

// categoryOrder fixes tie-breaking: earlier categories win equal keyword
// scores, so classification is deterministic for identical input.
var categoryOrder = []string{
	CategoryRentArrears,
	CategoryMaintenance,
	CategoryCompliance,
	CategoryLeaseRenewal,
	CategoryNoticeLegal,
}

var categoryKeywords = map[string][]string{
	CategoryMaintenance: {
		"repair", "fix", "broken", "leak", "plumb", "electric", "heater",
		"hot water", "aircon", "dishwasher", "oven", "maintenance", "tradesman",
		"mould", "pest", "door", "window", "roof",
	},
	CategoryCompliance: {
		"smoke alarm", "compliance", "inspection", "safety check",
		"gas check", "pool fence", "certificate",
	},
	CategoryRentArrears: {
		"rent", "arrears", "overdue", "payment", "owing", "behind on",
		"direct debit", "receipt",
	},
	CategoryLeaseRenewal: {
		"lease", "renewal", "renew", "vacate", "vacating", "extend",
		"end of lease", "fixed term", "periodic",
	},
	CategoryNoticeLegal: {
		"tribunal", "vcat", "ncat", "breach", "notice", "solicitor",
		"legal", "bond claim", "eviction",
	},
}

// categoryToTicket maps triage categories onto ticket board categories.
var categoryToTicket = map[string]ticketdomain.TicketCategory{
	CategoryMaintenance:  ticketdomain.CategoryMaintenance,
	CategoryCompliance:   ticketdomain.CategoryCompliance,
	CategoryRentArrears:  ticketdomain.CategoryRentArrears,
	CategoryLeaseRenewal: ticketdomain.CategoryLeasing,
	CategoryNoticeLegal:  ticketdomain.CategoryCompliance,
	CategoryGeneral:      ticketdomain.CategoryGeneral,
}

// HeuristicClassifier is the rule-based triage fallback. It always produces
// a result.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Classify scores a conversation with keyword rules only.
func (c *HeuristicClassifier) Classify(subject, body string) *TriageResult {
	text := strings.ToLower(subject + "\n" + body)

	category := CategoryGeneral
	bestScore := 0
	var reasons []string
	for _, cat := range categoryOrder {
		score := 0
		var hits []string
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				score++
				hits = append(hits, kw)
			}
		}
		if score > bestScore {
			bestScore = score
			category = cat
			reasons = hits
		}
	}

	urgency := UrgencyFloor(text)
	if urgency == 0 {
		urgency = defaultUrgency(category)
	}

	confidence := 40
	if bestScore > 0 {
		confidence = 55 + 10*bestScore
		if confidence > 85 {
			confidence = 85
		}
	}

	for i, r := range reasons {
		reasons[i] = fmt.Sprintf("keyword: %s", r)
	}

	return &TriageResult{
		Category:       category,
		TicketCategory: TicketCategoryFor(category),
		Priority:       PriorityForUrgency(urgency),
		Urgency:        urgency,
		Confidence:     confidence,
		Reasons:        reasons,
		Summary:        "",
	}
}

// UrgencyFloor returns the minimum urgency implied by hard keyword rules,
// or 0 when no rule matches. Model output may raise urgency above the
// floor but never lower it below.
func UrgencyFloor(text string) int {
	text = strings.ToLower(text)
	for _, kw := range urgency5Keywords {
		if strings.Contains(text, kw) {
			return 5
		}
	}
	for _, kw := range urgency4Keywords {
		if strings.Contains(text, kw) {
			return 4
		}
	}
	return 0
}

func defaultUrgency(category string) int {
	switch category {
	case CategoryMaintenance, CategoryNoticeLegal:
		return 3
	case CategoryRentArrears, CategoryCompliance:
		return 3
	default:
		return 2
	}
}

// TicketCategoryFor maps a triage category label to a board category.
func TicketCategoryFor(category string) ticketdomain.TicketCategory {
	if tc, ok := categoryToTicket[strings.ToLower(category)]; ok {
		return tc
	}
	return ticketdomain.CategoryGeneral
}

// PriorityForUrgency maps the 1..5 urgency scale onto due-date priority.
func PriorityForUrgency(urgency int) ticketdomain.Priority {
	switch {
	case urgency >= 4:
		return ticketdomain.PriorityHigh
	case urgency == 3:
		return ticketdomain.PriorityMedium
	default:
		return ticketdomain.PriorityLow
	}
}

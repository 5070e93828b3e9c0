package ai

import (
	"testing"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

func TestClassifyMaintenanceEmergency(t *testing.T) {
	c := NewHeuristicClassifier()
	res := c.Classify("URGENT: burst pipe in bathroom", "Water is flooding the hallway, please send a plumber immediately.")

	if res.Category != CategoryMaintenance {
		t.Fatalf("category = %q, want %q", res.Category, CategoryMaintenance)
	}
	if res.Urgency != 5 {
		t.Fatalf("urgency = %d, want 5", res.Urgency)
	}
	if res.Priority != ticketdomain.PriorityHigh {
		t.Fatalf("priority = %q, want high", res.Priority)
	}
	if res.TicketCategory != ticketdomain.CategoryMaintenance {
		t.Fatalf("ticket category = %q", res.TicketCategory)
	}
}

func TestClassifyRentArrears(t *testing.T) {
	c := NewHeuristicClassifier()
	res := c.Classify("Rent payment", "I am behind on my rent and in arrears, can we set up a payment plan?")

	if res.Category != CategoryRentArrears {
		t.Fatalf("category = %q, want %q", res.Category, CategoryRentArrears)
	}
	if res.Urgency < 4 {
		t.Fatalf("urgency = %d, arrears keyword should floor at 4", res.Urgency)
	}
}

func TestClassifyGeneralFallback(t *testing.T) {
	c := NewHeuristicClassifier()
	res := c.Classify("Hello", "Just checking in, hope you are well.")

	if res.Category != CategoryGeneral {
		t.Fatalf("category = %q, want %q", res.Category, CategoryGeneral)
	}
	if res.Urgency != 2 {
		t.Fatalf("urgency = %d, want 2", res.Urgency)
	}
	if res.Priority != ticketdomain.PriorityLow {
		t.Fatalf("priority = %q, want low", res.Priority)
	}
}

func TestClassifyTieBreaksByFixedPrecedence(t *testing.T) {
	c := NewHeuristicClassifier()

	// One maintenance keyword and one compliance keyword score equally;
	// the earlier category in the precedence order must win, every time.
	for i := 0; i < 200; i++ {
		res := c.Classify("window certificate", "")
		if res.Category != CategoryMaintenance {
			t.Fatalf("run %d: category = %q, want %q", i, res.Category, CategoryMaintenance)
		}
	}
}

func TestUrgencyFloor(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"there is a gas leak in the kitchen", 5},
		{"notice to vacate received", 4},
		{"when is the next inspection due", 0},
	}
	for _, tc := range cases {
		if got := UrgencyFloor(tc.text); got != tc.want {
			t.Fatalf("UrgencyFloor(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash("Subject", "Body")
	b := ContentHash("Subject", "Body")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if a == ContentHash("Subject", "Other body") {
		t.Fatalf("different content produced identical hash")
	}
}

func TestReplySubject(t *testing.T) {
	if got := replySubject("Leaking tap"); got != "Re: Leaking tap" {
		t.Fatalf("replySubject = %q", got)
	}
	if got := replySubject("RE: Leaking tap"); got != "RE: Leaking tap" {
		t.Fatalf("replySubject double-prefixed: %q", got)
	}
	if got := replySubject(""); got != "Re: your enquiry" {
		t.Fatalf("replySubject empty = %q", got)
	}
}

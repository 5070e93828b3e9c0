package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ticketdesk-backend/pkg/gemini"
)

// triagePrompt asks the model for strict JSON so the response parses
// without scraping.
const triagePrompt = `You are a triage assistant for a property management inbox.
Classify the email below.

Respond with ONLY a JSON object of this exact shape:
{"category": "maintenance|compliance|rent_arrears|lease_renewal|notice_legal|general",
 "urgency": 1-5,
 "confidence": 0-100,
 "reasons": ["short reason", ...],
 "summary": "one sentence summary"}

Subject: %s

Body:
%s`

type modelTriage struct {
	Category   string   `json:"category"`
	Urgency    int      `json:"urgency"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Summary    string   `json:"summary"`
}

// Service combines the Gemini model with the rule-based classifier. The
// rules always run; the model, when configured and healthy, refines the
// result but can never lower urgency below the keyword floor.
type Service struct {
	model     *gemini.Service
	heuristic *HeuristicClassifier
}

func NewService(model *gemini.Service) *Service {
	return &Service{
		model:     model,
		heuristic: NewHeuristicClassifier(),
	}
}

// Triage never fails. Model errors are logged and the heuristic result is
// returned instead.
func (s *Service) Triage(ctx context.Context, subject, body string) *TriageResult {
	fallback := s.heuristic.Classify(subject, body)
	if s.model == nil || !s.model.Enabled() {
		return fallback
	}

	prompt := fmt.Sprintf(triagePrompt, subject, truncate(body, 8000))
	raw, err := s.model.GenerateContent(ctx, prompt, true)
	if err != nil {
		log.Printf("[Triage] model call failed, using rule-based result: %v", err)
		return fallback
	}

	var parsed modelTriage
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		log.Printf("[Triage] unparseable model response, using rule-based result: %v", err)
		return fallback
	}
	if parsed.Category == "" || parsed.Urgency < 1 || parsed.Urgency > 5 {
		log.Printf("[Triage] model response out of range, using rule-based result")
		return fallback
	}

	urgency := parsed.Urgency
	if floor := UrgencyFloor(subject + "\n" + body); urgency < floor {
		urgency = floor
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return &TriageResult{
		Category:       strings.ToLower(parsed.Category),
		TicketCategory: TicketCategoryFor(parsed.Category),
		Priority:       PriorityForUrgency(urgency),
		Urgency:        urgency,
		Confidence:     confidence,
		Reasons:        parsed.Reasons,
		Summary:        parsed.Summary,
	}
}

// extractJSON strips a markdown code fence when the model wraps the JSON
// despite the response mime type.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
		raw = strings.TrimSpace(raw)
	}
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

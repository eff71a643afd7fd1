package domain

import "strings"

// Priority is the derived urgency class of a social signal.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityRules holds the keyword lists and engagement thresholds used to
// classify social signals. Keyword matches are case-insensitive substring
// checks and always dominate the engagement thresholds.
type PriorityRules struct {
	UrgentKeywords  []string
	NeedsKeywords   []string
	HighThreshold   int
	MediumThreshold int
}

// DefaultPriorityRules returns the platform's operational classification
// constants. The thresholds have no documented derivation; they are kept
// as-is rather than retuned.
func DefaultPriorityRules() PriorityRules {
	return PriorityRules{
		UrgentKeywords:  []string{"urgent", "emergency", "sos", "immediate", "critical", "help"},
		NeedsKeywords:   []string{"need", "assistance", "shelter", "medical", "food", "water"},
		HighThreshold:   100,
		MediumThreshold: 50,
	}
}

// Classify derives a priority from post content and engagement counters.
// Rule order is significant: urgent keywords, then needs keywords, then
// engagement thresholds.
func (r PriorityRules) Classify(content string, metrics Engagement) Priority {
	lower := strings.ToLower(content)

	for _, kw := range r.UrgentKeywords {
		if strings.Contains(lower, kw) {
			return PriorityUrgent
		}
	}
	for _, kw := range r.NeedsKeywords {
		if strings.Contains(lower, kw) {
			return PriorityHigh
		}
	}

	switch total := metrics.Total(); {
	case total > r.HighThreshold:
		return PriorityHigh
	case total > r.MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

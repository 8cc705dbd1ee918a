package graph

import (
	"regexp"
	"strings"

	"github.com/cafemesh/cafemesh/transport"
)

// emptySummary is returned when every collected response was filtered out.
const emptySummary = "No non-idle status updates received."

// summaryPrefix opens every non-empty summary line.
const summaryPrefix = "Order status updates: "

var deliveredWord = regexp.MustCompile(`(?i)\bdelivered\b`)

// SummarizeResponses folds the peer responses collected during a broadcast
// into one human-readable line.
//
// Responses that are empty or mention "idle" are dropped. A response whose
// text contains the whole word "delivered" becomes its own segment placed
// after the per-sender aggregates, and the summary gains a "(final)" suffix.
// Other updates are grouped per sender in first-seen order, with consecutive
// duplicates from the same sender collapsed.
func SummarizeResponses(responses []transport.AgentResponse) string {
	var (
		senderOrder       []string
		updatesBySender   = make(map[string][]string)
		deliveredSegments []string
		deliveredSeen     bool
	)

	for _, r := range responses {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		if strings.Contains(strings.ToLower(text), "idle") {
			continue
		}
		sender := strings.TrimSpace(r.SenderName)
		if sender == "" {
			sender = "Unknown"
		}

		if deliveredWord.MatchString(text) {
			deliveredSegments = append(deliveredSegments, sender+": "+text)
			deliveredSeen = true
			continue
		}

		updates := updatesBySender[sender]
		if len(updates) > 0 && updates[len(updates)-1] == text {
			continue
		}
		if len(updates) == 0 {
			senderOrder = append(senderOrder, sender)
		}
		updatesBySender[sender] = append(updates, text)
	}

	if len(senderOrder) == 0 && !deliveredSeen {
		return emptySummary
	}

	segments := make([]string, 0, len(senderOrder)+len(deliveredSegments))
	for _, sender := range senderOrder {
		segments = append(segments, sender+": "+strings.Join(updatesBySender[sender], ", "))
	}
	segments = append(segments, deliveredSegments...)

	summary := summaryPrefix + strings.Join(segments, " | ")
	if deliveredSeen {
		summary += " (final)"
	}
	return summary
}

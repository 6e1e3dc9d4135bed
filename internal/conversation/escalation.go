package conversation

import "strings"

// stuckHistoryThreshold is the history length after which repetition counts as being stuck.
const stuckHistoryThreshold = 8

var escalationTriggers = []string{
	"speak to someone",
	"talk to a person",
	"human",
	"representative",
	"manager",
	"supervisor",
	"customer service",
	"too complicated",
	"not helpful",
	"frustrated",
}

// ShouldEscalateToHuman reports whether the customer asked for a person, or the
// conversation looks stuck: a long history where the customer repeats the last
// message or says "still"/"again".
func ShouldEscalateToHuman(text string, history []Message) bool {
	lower := strings.ToLower(text)
	if containsAny(lower, escalationTriggers...) {
		return true
	}
	if len(history) <= stuckHistoryThreshold {
		return false
	}
	if strings.Contains(lower, "still") || strings.Contains(lower, "again") {
		return true
	}
	prev, ok := lastUserText(history)
	return ok && strings.TrimSpace(strings.ToLower(prev)) == strings.TrimSpace(lower)
}

func lastUserText(history []Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == SenderUser {
			return history[i].Text, true
		}
	}
	return "", false
}

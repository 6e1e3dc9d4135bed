package conversation

import (
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"
)

// ReplyContext is the conversation state the responder reads. It is built by
// the caller after the state machine has run for the current message.
type ReplyContext struct {
	Stage          Stage
	IsEmergency    bool
	EmergencyLevel int
	History        []Message
	// LeadFlags are the flags before this message; DetectedField is what the
	// extractor attributed this message to, if anything.
	LeadFlags     LeadFlags
	DetectedField Field
}

// Picker chooses an index in [0, n).
type Picker interface {
	IntN(n int) int
}

// lockedPicker serializes access to a *rand.Rand, which is not goroutine safe.
type lockedPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededPicker returns a deterministic Picker.
func NewSeededPicker(seed uint64) Picker {
	return &lockedPicker{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (p *lockedPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Responder turns a message and conversation state into the next bot reply.
type Responder struct {
	picker Picker
}

// NewResponder creates a responder; a nil picker uses the global random source.
func NewResponder(picker Picker) *Responder {
	if picker == nil {
		picker = globalPicker{}
	}
	return &Responder{picker: picker}
}

// Generate evaluates the reply rules in priority order. It always returns a reply.
func (r *Responder) Generate(message string, rc ReplyContext) string {
	lower := strings.ToLower(message)
	detected := DetectEmergency(message)
	level := rc.EmergencyLevel
	if detected {
		level = SeverityLevel(message)
	}
	if level < LevelNone {
		level = LevelNone
	}
	flags := rc.LeadFlags.With(rc.DetectedField)

	if ShouldEscalateToHuman(message, rc.History) {
		return replyEscalate
	}

	if detected || level >= LevelMedium {
		return emergencyReply(message, level)
	}

	switch rc.Stage {
	case StageGreeting:
		if isBareGreeting(lower) || hasWord(lower, "help") {
			return greetingReplies[r.picker.IntN(len(greetingReplies))]
		}
		if utf8.RuneCountInString(lower) > 10 {
			if advice := adviceFor(message, level); advice != "" {
				return advice + suffixGreetingName
			}
			return replyGreetingDetails
		}
	case StageQualification:
		if reply, ok := qualificationReply(lower, rc.DetectedField, flags); ok {
			return reply
		}
	case StageScheduling:
		if rc.DetectedField != FieldNone && flags.Complete() {
			return replyQualified
		}
		return schedulingReply(lower)
	}

	if reply, ok := topicalReply(message, lower, level); ok {
		return reply
	}

	if advice := adviceFor(message, level); advice != "" {
		return advice + suffixTellMore
	}
	if len(rc.History) > 0 {
		return replyMoreDetail
	}
	return replyDefault
}

func emergencyReply(message string, level int) string {
	switch {
	case level >= LevelCritical:
		return replyCritical
	case level >= LevelHigh:
		return replyUrgent
	}
	if advice := adviceFor(message, level); advice != "" {
		return advice + suffixEmergencyName
	}
	return replyAttentionSoon
}

func qualificationReply(lower string, detected Field, flags LeadFlags) (string, bool) {
	if detected != FieldNone {
		if next, ok := flags.NextMissing(); ok {
			return qualificationQuestions[next], true
		}
		return replyQualified, true
	}
	if hasWord(lower, affirmativeWords...) || containsAny(lower, affirmativeStems...) {
		if next, ok := flags.NextMissing(); ok {
			return qualificationQuestions[next], true
		}
		return replyAnythingElse, true
	}
	if hasWord(lower, negativeWords...) {
		return replyNoProblem, true
	}
	if next, ok := flags.NextMissing(); ok {
		return qualificationQuestions[next], true
	}
	return "", false
}

func schedulingReply(lower string) string {
	if hasWord(lower, scheduleAcceptWords...) || containsAny(lower, scheduleAcceptStems...) {
		return replySchedulePick
	}
	if hasWord(lower, scheduleDeclineWord...) || containsAny(lower, scheduleDeclineStem...) {
		return replyScheduleLater
	}
	return replyScheduleDefault
}

func topicalReply(message, lower string, level int) (string, bool) {
	switch {
	case containsAny(lower, quoteStems...):
		return replyQuote, true
	case containsAny(lower, inspectionStems...):
		return replyInspection, true
	case containsAny(lower, repairStems...):
		if advice := adviceFor(message, level); advice != "" {
			return advice + suffixRepair, true
		}
		return replyRepair, true
	case containsAny(lower, maintenanceStems...):
		return advicePreventive + suffixMaintenance, true
	case containsAny(lower, warrantyStems...):
		return replyWarranty, true
	case containsAny(lower, thanksStems...):
		return replyThanks, true
	case hasWord(lower, helloWords...):
		return replyHello, true
	}
	return "", false
}

// adviceFor returns canned advice for the message's issue category, or "" when
// no category is detected. Categories without dedicated advice fall back to a
// level-based recommendation.
func adviceFor(message string, level int) string {
	category, ok := DetectIssueCategory(message)
	if !ok {
		return ""
	}
	if advice, ok := categoryAdvice[category]; ok {
		return advice
	}
	if level >= LevelHigh {
		return adviceUrgent
	}
	return adviceInspection
}

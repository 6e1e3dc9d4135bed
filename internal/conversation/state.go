package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest chat message the host accepts, in characters.
const MaxMessageLength = 1000

// Stage is a step of the scripted conversation. Stages only ever move forward.
type Stage string

const (
	StageGreeting      Stage = "greeting"
	StageQualification Stage = "qualification"
	StageScheduling    Stage = "scheduling"
	StageCompleted     Stage = "completed"
)

var stageRank = map[Stage]int{
	StageGreeting:      0,
	StageQualification: 1,
	StageScheduling:    2,
	StageCompleted:     3,
}

// ParseStage validates a stage name received from a client.
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.TrimSpace(s))
	if stage == "" {
		return StageGreeting, nil
	}
	if _, ok := stageRank[stage]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return stage, nil
}

// Rank orders stages; unknown stages rank below greeting.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat line. It is never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Field names a qualification field collected from the customer.
type Field string

const (
	FieldNone             Field = ""
	FieldName             Field = "name"
	FieldPhone            Field = "phone"
	FieldAddress          Field = "address"
	FieldProblem          Field = "problem"
	FieldPreferredContact Field = "preferredContact"
)

// QualificationOrder is the order in which missing fields are asked for.
var QualificationOrder = []Field{FieldName, FieldPhone, FieldAddress, FieldProblem, FieldPreferredContact}

// ParseField maps a client-supplied field name, accepting the legacy "contact" alias.
func ParseField(s string) (Field, bool) {
	switch strings.TrimSpace(s) {
	case "name":
		return FieldName, true
	case "phone":
		return FieldPhone, true
	case "address":
		return FieldAddress, true
	case "problem":
		return FieldProblem, true
	case "preferredContact", "contact":
		return FieldPreferredContact, true
	}
	return FieldNone, false
}

// UnmarshalText decodes a field name from client-held state.
func (f *Field) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = FieldNone
		return nil
	}
	field, ok := ParseField(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidField, string(b))
	}
	*f = field
	return nil
}

// LeadFlags records which qualification fields have been supplied. Flags are never unset.
type LeadFlags struct {
	Name             bool `json:"name"`
	Phone            bool `json:"phone"`
	Address          bool `json:"address"`
	Problem          bool `json:"problem"`
	PreferredContact bool `json:"preferredContact"`
}

// Has reports whether f has been collected.
func (f LeadFlags) Has(field Field) bool {
	switch field {
	case FieldName:
		return f.Name
	case FieldPhone:
		return f.Phone
	case FieldAddress:
		return f.Address
	case FieldProblem:
		return f.Problem
	case FieldPreferredContact:
		return f.PreferredContact
	}
	return false
}

// With returns a copy of f with field marked as collected.
func (f LeadFlags) With(field Field) LeadFlags {
	switch field {
	case FieldName:
		f.Name = true
	case FieldPhone:
		f.Phone = true
	case FieldAddress:
		f.Address = true
	case FieldProblem:
		f.Problem = true
	case FieldPreferredContact:
		f.PreferredContact = true
	}
	return f
}

// Complete reports whether all five fields are collected.
func (f LeadFlags) Complete() bool {
	return f.Name && f.Phone && f.Address && f.Problem && f.PreferredContact
}

// NextMissing returns the first uncollected field in QualificationOrder.
func (f LeadFlags) NextMissing() (Field, bool) {
	for _, field := range QualificationOrder {
		if !f.Has(field) {
			return field, true
		}
	}
	return FieldNone, false
}

// Conversation is the per-session aggregate threaded through every turn.
// It is a value: transitions return an updated copy and leave the input untouched.
type Conversation struct {
	ID             string           `json:"id,omitempty"`
	Stage          Stage            `json:"currentStep"`
	IsEmergency    bool             `json:"isEmergency"`
	EmergencyLevel int              `json:"emergencyLevel"`
	Messages       []Message        `json:"messages"`
	LeadFlags      LeadFlags        `json:"leadFlags"`
	Fields         map[Field]string `json:"fields,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// NewConversation starts a session at the greeting stage.
func NewConversation(id string, now time.Time) Conversation {
	return Conversation{
		ID:        id,
		Stage:     StageGreeting,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c Conversation) clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Fields != nil {
		out.Fields = make(map[Field]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Value returns the most recent value recorded for field.
func (c Conversation) Value(field Field) string {
	return c.Fields[field]
}

// Validate checks host-supplied conversation state.
func (c Conversation) Validate() error {
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	if c.EmergencyLevel < 0 || c.EmergencyLevel > 5 {
		return fmt.Errorf("%w: emergency level %d", ErrInvalidConversation, c.EmergencyLevel)
	}
	return nil
}

// ValidateMessage rejects empty or oversized chat input.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// NextStage applies the stage transition rules for one user message.
func NextStage(current Stage, text string, flags LeadFlags) Stage {
	lower := strings.ToLower(text)
	switch current {
	case StageGreeting:
		if utf8.RuneCountInString(lower) > 10 && !isBareGreeting(lower) {
			return StageQualification
		}
	case StageQualification:
		if flags.Complete() || containsAny(lower, schedulingIntentKeywords...) {
			return StageScheduling
		}
	case StageScheduling:
		if containsAny(lower, confirmationKeywords...) {
			return StageCompleted
		}
	}
	return current
}

// AdvanceConversation applies one user message: the emergency state is merged
// monotonically, any qualification field in the message is recorded and the
// stage transition is taken. history, when non-nil, replaces the messages
// carried by conv before msg is appended.
func AdvanceConversation(conv Conversation, msg Message, history []Message) Conversation {
	next := conv.clone()
	if next.Stage == "" {
		next.Stage = StageGreeting
	}
	if history != nil {
		next.Messages = append([]Message(nil), history...)
	}

	if DetectEmergency(msg.Text) {
		next.IsEmergency = true
		next.EmergencyLevel = max(next.EmergencyLevel, SeverityLevel(msg.Text))
	}

	if ex := ExtractField(msg.Text, next.Stage); ex.Field != FieldNone {
		next = recordField(next, ex.Field, ex.Value)
	}

	stage := NextStage(next.Stage, msg.Text, next.LeadFlags)
	if stage.Rank() > next.Stage.Rank() {
		next.Stage = stage
	}
	next = enforceFlagsInvariant(next)

	next.Messages = append(next.Messages, msg)
	if !msg.Timestamp.IsZero() {
		next.UpdatedAt = msg.Timestamp
	}
	return next
}

// RecordField stores a field supplied outside the chat, such as the lead form.
func RecordField(conv Conversation, field Field, value string) Conversation {
	if field == FieldNone {
		return conv
	}
	return enforceFlagsInvariant(recordField(conv.clone(), field, value))
}

func recordField(conv Conversation, field Field, value string) Conversation {
	conv.LeadFlags = conv.LeadFlags.With(field)
	if conv.Fields == nil {
		conv.Fields = make(map[Field]string, len(QualificationOrder))
	}
	conv.Fields[field] = strings.TrimSpace(value)
	return conv
}

func enforceFlagsInvariant(conv Conversation) Conversation {
	if conv.LeadFlags.Complete() && conv.Stage.Rank() < StageScheduling.Rank() {
		conv.Stage = StageScheduling
	}
	return conv
}

// ShouldShowQualificationForm derives whether the host should offer the lead form.
func ShouldShowQualificationForm(conv Conversation, messageCount int) bool {
	return conv.IsEmergency ||
		conv.EmergencyLevel >= 3 ||
		conv.Stage == StageQualification ||
		messageCount >= 2
}

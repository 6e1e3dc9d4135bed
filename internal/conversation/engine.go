package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

var engineTracer = otel.Tracer("roofing/conversation-engine")

// Engine exposes the classifier, extractor, state machine and responder to the
// host. It holds no per-conversation state and is safe for concurrent use.
type Engine struct {
	logger    *logging.Logger
	tracer    trace.Tracer
	responder *Responder
	now       func() time.Time
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPicker fixes the random source used to vary greetings.
func WithPicker(p Picker) Option {
	return func(e *Engine) { e.responder = NewResponder(p) }
}

// WithClock overrides the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides message and conversation ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine creates an engine.
func NewEngine(logger *logging.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		logger:    logger,
		tracer:    engineTracer,
		responder: NewResponder(nil),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClassifyEmergency scores a message's urgency.
func (e *Engine) ClassifyEmergency(text string) Classification {
	return Classify(text)
}

// ExtractQualificationField attributes a message to a lead field.
func (e *Engine) ExtractQualificationField(text string, stage Stage) Extraction {
	return ExtractField(text, stage)
}

// AdvanceConversation applies one user message to the conversation.
func (e *Engine) AdvanceConversation(conv Conversation, msg Message, history []Message) Conversation {
	return AdvanceConversation(conv, msg, history)
}

// GenerateReply produces the bot reply for a message.
func (e *Engine) GenerateReply(message string, rc ReplyContext) string {
	return e.responder.Generate(message, rc)
}

// NewConversation starts an empty session.
func (e *Engine) NewConversation() Conversation {
	return NewConversation(e.newID(), e.now())
}

// NewMessage stamps a chat line with an ID and the engine clock.
func (e *Engine) NewMessage(text string, sender Sender) Message {
	return Message{ID: e.newID(), Text: text, Sender: sender, Timestamp: e.now()}
}

// TurnResult is everything the host needs to answer one chat message.
type TurnResult struct {
	Reply          string
	Classification Classification
	// EmergencyLevel is this message's level when it is an emergency, otherwise
	// the conversation's running level.
	EmergencyLevel        int
	Conversation          Conversation
	Extraction            Extraction
	ShowQualificationForm bool
	// QualificationStep is the next field to ask for while qualifying.
	QualificationStep Field
	Escalate          bool
	// Qualified is set on the turn where the last lead field was collected.
	Qualified bool
}

// Turn runs one user message through the full pipeline and appends both the
// message and the reply to the returned conversation. conv is not modified.
func (e *Engine) Turn(ctx context.Context, conv Conversation, text string) TurnResult {
	_, span := e.tracer.Start(ctx, "conversation.turn")
	defer span.End()

	if conv.ID == "" {
		conv.ID = e.newID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = e.now()
	}
	if conv.Stage == "" {
		conv.Stage = StageGreeting
	}
	prior := conv.Messages

	cls := Classify(text)
	extraction := ExtractField(text, conv.Stage)
	updated := AdvanceConversation(conv, e.NewMessage(text, SenderUser), nil)
	escalate := ShouldEscalateToHuman(text, prior)

	reply := e.responder.Generate(text, ReplyContext{
		Stage:          updated.Stage,
		IsEmergency:    updated.IsEmergency,
		EmergencyLevel: updated.EmergencyLevel,
		History:        prior,
		LeadFlags:      conv.LeadFlags,
		DetectedField:  extraction.Field,
	})
	bot := e.NewMessage(reply, SenderBot)
	updated.Messages = append(updated.Messages, bot)
	updated.UpdatedAt = bot.Timestamp

	result := TurnResult{
		Reply:                 reply,
		Classification:        cls,
		EmergencyLevel:        updated.EmergencyLevel,
		Conversation:          updated,
		Extraction:            extraction,
		ShowQualificationForm: ShouldShowQualificationForm(updated, len(prior)),
		Escalate:              escalate,
		Qualified:             !conv.LeadFlags.Complete() && updated.LeadFlags.Complete(),
	}
	if cls.IsEmergency {
		result.EmergencyLevel = cls.Level
	}
	if updated.Stage == StageQualification {
		result.QualificationStep, _ = updated.LeadFlags.NextMissing()
	}

	span.SetAttributes(
		attribute.String("conversation.id", updated.ID),
		attribute.String("conversation.stage_from", string(conv.Stage)),
		attribute.String("conversation.stage_to", string(updated.Stage)),
		attribute.Int("conversation.emergency_level", updated.EmergencyLevel),
		attribute.String("conversation.field", string(extraction.Field)),
		attribute.Bool("conversation.escalate", escalate),
	)

	if cls.IsEmergency {
		e.logger.Info("emergency detected",
			"conversation_id", updated.ID,
			"level", cls.Level,
			"category", cls.Category,
		)
	}
	if conv.Stage != updated.Stage {
		e.logger.Info("conversation stage advanced",
			"conversation_id", updated.ID,
			"from", conv.Stage,
			"to", updated.Stage,
		)
	}
	e.logger.Debug("conversation turn",
		"conversation_id", updated.ID,
		"message_length", len(text),
		"field", extraction.Field,
		"escalate", escalate,
	)
	return result
}

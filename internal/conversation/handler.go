package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/roofing-lead-agent/internal/leads"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

// Recorder receives chat metrics; satisfied by the metrics package.
type Recorder interface {
	ObserveTurn(stage string, emergencyLevel int, escalated bool, duration time.Duration)
	ObserveLeadSaved(result string)
}

// HandlerConfig wires the chat handler's collaborators. Only Engine is required.
type HandlerConfig struct {
	Engine   *Engine
	Sessions SessionStore
	Leads    leads.Repository
	Metrics  Recorder
	Logger   *logging.Logger
	// Replies are held back for a random duration in [DelayMin, DelayMax].
	DelayMin time.Duration
	DelayMax time.Duration
}

// Handler wires HTTP requests to the conversation engine.
type Handler struct {
	engine   *Engine
	sessions SessionStore
	leads    leads.Repository
	metrics  Recorder
	logger   *logging.Logger
	delayMin time.Duration
	delayMax time.Duration
	now      func() time.Time
}

// NewHandler creates a chat handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Engine == nil {
		panic("conversation: engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	return &Handler{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		leads:    cfg.Leads,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		delayMin: cfg.DelayMin,
		delayMax: cfg.DelayMax,
		now:      time.Now,
	}
}

// ChatRequest is the body of POST /api/chat. Clients either send the
// conversation they hold or a session ID for server-side state.
type ChatRequest struct {
	Message        string        `json:"message"`
	Conversation   *Conversation `json:"conversationState,omitempty"`
	MessageHistory []Message     `json:"messageHistory,omitempty"`
	SessionID      string        `json:"sessionId,omitempty"`
}

// ChatResponse is the body returned for a chat turn.
type ChatResponse struct {
	Response                string           `json:"response"`
	IsEmergency             bool             `json:"isEmergency"`
	EmergencyLevel          int              `json:"emergencyLevel"`
	Category                Category         `json:"category,omitempty"`
	UpdatedConversation     Conversation     `json:"updatedConversation"`
	ShouldShowQualification bool             `json:"shouldShowQualification"`
	QualificationStep       Field            `json:"qualificationStep,omitempty"`
	LeadData                map[Field]string `json:"leadData,omitempty"`
	Escalate                bool             `json:"escalate"`
	LeadID                  string           `json:"leadId,omitempty"`
}

// SubmitRequest is the body of POST /api/chat/submit.
type SubmitRequest struct {
	Conversation *Conversation `json:"conversationState,omitempty"`
	SessionID    string        `json:"sessionId,omitempty"`
	Lead         LeadDetails   `json:"lead"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, ErrInvalidField) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON in request body"})
		return
	}
	if err := ValidateMessage(req.Message); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	conv, err := h.resolveConversation(ctx, req.Conversation, req.SessionID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}
	if len(conv.Messages) == 0 && len(req.MessageHistory) > 0 {
		conv.Messages = req.MessageHistory
	}

	if err := h.wait(ctx); err != nil {
		h.logger.Warn("chat request cancelled before reply", "conversation_id", conv.ID, "error", err)
		return
	}

	result := h.engine.Turn(ctx, conv, req.Message)
	resp := ChatResponse{
		Response:                result.Reply,
		IsEmergency:             result.Classification.IsEmergency,
		EmergencyLevel:          result.EmergencyLevel,
		Category:                result.Classification.Category,
		UpdatedConversation:     result.Conversation,
		ShouldShowQualification: result.ShowQualificationForm,
		QualificationStep:       result.QualificationStep,
		Escalate:                result.Escalate,
	}
	if result.Extraction.Field != FieldNone {
		resp.LeadData = map[Field]string{result.Extraction.Field: result.Extraction.Value}
	}

	if h.sessions != nil && req.SessionID != "" {
		if err := h.sessions.Save(ctx, result.Conversation); err != nil {
			h.logger.Error("failed to save chat session", "conversation_id", conv.ID, "error", err)
		}
	}
	if result.Qualified {
		resp.LeadID = h.captureLead(ctx, result.Conversation)
	}
	if h.metrics != nil {
		h.metrics.ObserveTurn(string(result.Conversation.Stage), result.Conversation.EmergencyLevel, result.Escalate, h.now().Sub(start))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Submit handles POST /api/chat/submit: the customer sends the lead form
// without finishing the chat qualification.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.leads == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "lead storage is not configured"})
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON in request body"})
		return
	}

	ctx := r.Context()
	conv, err := h.resolveConversation(ctx, req.Conversation, req.SessionID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	leadReq, err := AssembleLead(conv, req.Lead, true)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	lead, created, err := h.leads.Upsert(ctx, leadReq)
	if err != nil {
		if leads.IsValidationError(err) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("failed to save submitted lead", "conversation_id", conv.ID, "error", err)
		h.observeLead("error")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save lead", Details: err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.observeLead("created")
	} else {
		h.observeLead("updated")
	}
	h.logger.Info("lead submitted from chat", "lead_id", lead.ID, "conversation_id", conv.ID, "created", created)

	if h.sessions != nil && req.SessionID != "" {
		if err := h.sessions.Save(ctx, req.Lead.Apply(conv)); err != nil {
			h.logger.Error("failed to save chat session", "conversation_id", conv.ID, "error", err)
		}
	}
	h.writeJSON(w, status, lead)
}

// Slots handles GET /api/chat/slots?level=N.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	level := LevelNone
	if raw := r.URL.Query().Get("level"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > LevelCritical {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "level must be between 0 and 5"})
			return
		}
		level = n
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"emergencyLevel": level,
		"slots":          CandidateSlots(h.now(), level),
	})
}

// Reset handles DELETE /api/chat/sessions/{sessionID}, dropping server-held state so
// the next message starts a fresh conversation.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat sessions are not configured"})
		return
	}
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to reset chat session", "conversation_id", sessionID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to reset session"})
		return
	}
	h.logger.Info("chat session reset", "conversation_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /api/chat/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "chat-api",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) resolveConversation(ctx context.Context, supplied *Conversation, sessionID string) (Conversation, error) {
	if supplied != nil {
		if err := supplied.Validate(); err != nil {
			return Conversation{}, err
		}
		conv := *supplied
		if sessionID != "" {
			conv.ID = sessionID
		}
		return conv, nil
	}
	if sessionID == "" {
		return h.engine.NewConversation(), nil
	}
	if h.sessions != nil {
		conv, err := h.sessions.Load(ctx, sessionID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return Conversation{}, err
		}
	}
	conv := h.engine.NewConversation()
	conv.ID = sessionID
	return conv, nil
}

func (h *Handler) writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidStage) || errors.Is(err, ErrInvalidConversation) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.logger.Error("failed to load chat session", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load conversation"})
}

// captureLead stores the lead once chat qualification completes. Failures are
// logged; the customer still gets the reply.
func (h *Handler) captureLead(ctx context.Context, conv Conversation) string {
	if h.leads == nil {
		return ""
	}
	req, err := AssembleLead(conv, LeadDetails{}, false)
	if err != nil {
		h.logger.Warn("qualified conversation could not be assembled", "conversation_id", conv.ID, "error", err)
		return ""
	}
	lead, created, err := h.leads.Upsert(ctx, req)
	if err != nil {
		if leads.IsValidationError(err) {
			h.logger.Warn("qualified conversation produced an invalid lead", "conversation_id", conv.ID, "error", err)
			h.observeLead("invalid")
			return ""
		}
		h.logger.Error("failed to save qualified lead", "conversation_id", conv.ID, "error", err)
		h.observeLead("error")
		return ""
	}
	if created {
		h.observeLead("created")
	} else {
		h.observeLead("updated")
	}
	h.logger.Info("lead captured from chat", "lead_id", lead.ID, "conversation_id", conv.ID, "emergency_level", lead.EmergencyLevel)
	return lead.ID
}

func (h *Handler) observeLead(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLeadSaved(result)
	}
}

// wait holds the reply back for the configured delay, returning early if the
// request is cancelled.
func (h *Handler) wait(ctx context.Context) error {
	d := h.delayMin
	if spread := h.delayMax - h.delayMin; spread > 0 {
		d += rand.N(spread)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

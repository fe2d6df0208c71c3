package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sfedu-digital/campus-assistant/internal/assistant"
	"github.com/sfedu-digital/campus-assistant/internal/dialog"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// degradedReply is returned to the caller when the chat-completion backend
// fails; the dialog history records it like any other assistant turn.
const degradedReply = "Произошла ошибка при обработке запроса."

// assistantLabelPrefix is stripped from model output when the model echoes
// the speaker label back.
const assistantLabelPrefix = "Ассистент:"

// ContextStore is the slice of the dialog store the handler needs.
type ContextStore interface {
	LockUser(userID string) func()
	Append(userID string, speaker dialog.Speaker, text string, timestamp time.Time)
	RenderContext(userID string) string
	Save() error
}

// AssistantHandler serves POST /generate-response.
type AssistantHandler struct {
	store        ContextStore
	completer    assistant.Completer
	systemPrompt string
	log          logger.Interface
}

// NewAssistantHandler creates the assistant endpoint handler.
func NewAssistantHandler(
	store ContextStore,
	completer assistant.Completer,
	systemPrompt string,
	log logger.Interface,
) *AssistantHandler {
	return &AssistantHandler{
		store:        store,
		completer:    completer,
		systemPrompt: systemPrompt,
		log:          log,
	}
}

// generateRequest is the inbound body. UserID may arrive as a string or a
// number depending on the client.
type generateRequest struct {
	UserID  any    `json:"user_id"`
	Message string `json:"message"`
}

// GenerateResponse handles POST /generate-response.
// The per-user lock is held across the whole append -> complete -> append ->
// save cycle so concurrent requests for one user cannot lose updates.
func (h *AssistantHandler) GenerateResponse(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id и message обязательны"})
		return
	}

	userID := normalizeUserID(req.UserID)
	if userID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id и message обязательны"})
		return
	}

	unlock := h.store.LockUser(userID)
	defer unlock()

	now := time.Now()
	h.store.Append(userID, dialog.SpeakerUser, req.Message, now)

	prompt := assistant.BuildPrompt(h.store.RenderContext(userID), req.Message)

	reply, err := h.completer.Complete(c.Request.Context(), h.systemPrompt, prompt)
	if err != nil {
		h.log.Error("Chat completion failed",
			"user_id", userID,
			"error", err.Error(),
		)
		reply = degradedReply
	}

	h.store.Append(userID, dialog.SpeakerAssistant, reply, now)

	if saveErr := h.store.Save(); saveErr != nil {
		h.log.Error("Failed to save dialog history",
			"user_id", userID,
			"error", saveErr.Error(),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save dialog history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": stripAssistantLabel(reply)})
}

// normalizeUserID coerces the user_id field to its string form.
// Empty strings and zero values are treated as missing.
func normalizeUserID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == 0 {
			return ""
		}
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// stripAssistantLabel removes an echoed speaker label from the reply.
func stripAssistantLabel(reply string) string {
	if strings.HasPrefix(reply, assistantLabelPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(reply, assistantLabelPrefix))
	}
	return reply
}

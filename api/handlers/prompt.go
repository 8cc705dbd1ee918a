package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/types"
)

// PromptServer runs one prompt through a supervisor graph.
type PromptServer interface {
	Serve(ctx context.Context, prompt string) (string, error)
}

// PromptRequest is the POST /agent/prompt body.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// PromptResponse is the reply body.
type PromptResponse struct {
	Response string `json:"response"`
}

// PromptHandler serves POST /agent/prompt against a supervisor graph.
type PromptHandler struct {
	server  PromptServer
	timeout time.Duration
	logger  *zap.Logger
}

// NewPromptHandler creates the handler. The timeout is the wall-clock budget
// for one prompt, covering the full broadcast retry schedule.
func NewPromptHandler(server PromptServer, timeout time.Duration, logger *zap.Logger) *PromptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptHandler{
		server:  server,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "prompt_handler")),
	}
}

// HandlePrompt handles POST /agent/prompt.
func (h *PromptHandler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrValidation, "method not allowed", nil)
		return
	}

	var req PromptRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrValidation, "prompt must not be empty", h.logger)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := h.server.Serve(ctx, req.Prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			WriteErrorMessage(w, http.StatusGatewayTimeout, types.ErrTimeout, "request timed out", h.logger)
			return
		}
		var apiErr *types.Error
		if errors.As(err, &apiErr) {
			WriteError(w, apiErr, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternal, "internal server error", h.logger)
		return
	}

	h.logger.Info("prompt handled", zap.Duration("duration", time.Since(start)))
	WriteJSON(w, http.StatusOK, PromptResponse{Response: reply})
}

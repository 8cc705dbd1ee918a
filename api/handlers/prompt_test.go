package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/types"
)

type stubServer struct {
	reply string
	err   error
	wait  time.Duration
}

func (s *stubServer) Serve(ctx context.Context, prompt string) (string, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func postPrompt(t *testing.T, h *PromptHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/agent/prompt", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandlePrompt(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandlePrompt_Success(t *testing.T) {
	h := NewPromptHandler(&stubServer{reply: "Order created."}, time.Minute, nil)

	rec := postPrompt(t, h, `{"prompt": "order coffee"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body PromptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Order created.", body.Response)
}

func TestHandlePrompt_MethodNotAllowed(t *testing.T) {
	h := NewPromptHandler(&stubServer{}, time.Minute, nil)

	req := httptest.NewRequest(http.MethodGet, "/agent/prompt", nil)
	rec := httptest.NewRecorder()
	h.HandlePrompt(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePrompt_EmptyPrompt(t *testing.T) {
	h := NewPromptHandler(&stubServer{}, time.Minute, nil)

	rec := postPrompt(t, h, `{"prompt": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
}

func TestHandlePrompt_MalformedBody(t *testing.T) {
	h := NewPromptHandler(&stubServer{}, time.Minute, nil)

	rec := postPrompt(t, h, `{"prompt": "x", "bogus": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, rec).Error.Code)
}

func TestHandlePrompt_TypedErrorKeepsStatus(t *testing.T) {
	srvErr := types.NewError(types.ErrPeerCommunication, "broadcast failed after retries")
	h := NewPromptHandler(&stubServer{err: srvErr}, time.Minute, nil)

	rec := postPrompt(t, h, `{"prompt": "order coffee"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.Equal(t, "PEER_COMMUNICATION", resp.Error.Code)
	assert.Equal(t, "broadcast failed after retries", resp.Error.Message)
}

func TestHandlePrompt_UntypedErrorHidesDetail(t *testing.T) {
	h := NewPromptHandler(&stubServer{err: errors.New("redis: connection refused")}, time.Minute, nil)

	rec := postPrompt(t, h, `{"prompt": "order coffee"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.Equal(t, "INTERNAL", resp.Error.Code)
	assert.Equal(t, "internal server error", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestHandlePrompt_Timeout(t *testing.T) {
	h := NewPromptHandler(&stubServer{wait: time.Second}, 20*time.Millisecond, nil)

	rec := postPrompt(t, h, `{"prompt": "order coffee"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "TIMEOUT", decodeEnvelope(t, rec).Error.Code)
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/types"
)

type scriptedProvider struct {
	resp *ChatResponse
	err  error
	last *ChatRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Completion(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.last = req
	return p.resp, p.err
}

func TestReflectionVerdict_ParsesJSON(t *testing.T) {
	p := &scriptedProvider{resp: &ChatResponse{
		Message: types.NewAssistantMessage(`  {"should_continue": true, "reason": "follow-up pending"}  `),
	}}

	v, err := ReflectionVerdict(context.Background(), p, []types.Message{
		types.NewUserMessage("how much coffee is left?"),
	})
	require.NoError(t, err)
	assert.True(t, v.ShouldContinue)
	assert.Equal(t, "follow-up pending", v.Reason)

	require.NotNil(t, p.last)
	assert.Equal(t, "json_object", p.last.ResponseFormat)
	assert.Equal(t, types.RoleSystem, p.last.Messages[0].Role)
}

func TestReflectionVerdict_MalformedAnswerStops(t *testing.T) {
	p := &scriptedProvider{resp: &ChatResponse{
		Message: types.NewAssistantMessage("yeah keep going I guess"),
	}}

	v, err := ReflectionVerdict(context.Background(), p, nil)
	require.NoError(t, err)
	assert.False(t, v.ShouldContinue)
	assert.Equal(t, "unparseable reflection verdict", v.Reason)
}

func TestReflectionVerdict_ProviderErrorPropagates(t *testing.T) {
	p := &scriptedProvider{err: errors.New("provider down")}

	_, err := ReflectionVerdict(context.Background(), p, nil)
	assert.ErrorContains(t, err, "provider down")
}

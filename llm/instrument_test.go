package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/types"
)

func TestInstrument_ReportsOutcome(t *testing.T) {
	var gotProvider string
	var gotOK []bool
	observe := func(provider string, _ time.Duration, ok bool) {
		gotProvider = provider
		gotOK = append(gotOK, ok)
	}

	p := Instrument(&scriptedProvider{resp: &ChatResponse{
		Message: types.NewAssistantMessage("hi"),
	}}, observe)

	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	failing := Instrument(&scriptedProvider{err: errors.New("down")}, observe)
	_, err = failing.Completion(context.Background(), &ChatRequest{})
	require.Error(t, err)

	assert.Equal(t, "scripted", gotProvider)
	assert.Equal(t, []bool{true, false}, gotOK)
}

func TestInstrument_NilObserveIsPassthrough(t *testing.T) {
	inner := &scriptedProvider{}
	assert.Same(t, Provider(inner), Instrument(inner, nil))
}

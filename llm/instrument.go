package llm

import (
	"context"
	"time"
)

// ObserveFunc records one completion call: provider name, latency, success.
type ObserveFunc func(provider string, duration time.Duration, ok bool)

// instrumentedProvider wraps a Provider and reports every call.
type instrumentedProvider struct {
	inner   Provider
	observe ObserveFunc
}

// Instrument wraps a provider so every completion is reported through
// observe. A nil observe returns the provider unchanged.
func Instrument(p Provider, observe ObserveFunc) Provider {
	if observe == nil {
		return p
	}
	return &instrumentedProvider{inner: p, observe: observe}
}

func (p *instrumentedProvider) Name() string { return p.inner.Name() }

func (p *instrumentedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)
	p.observe(p.inner.Name(), time.Since(start), err == nil)
	return resp, err
}

var _ Provider = (*instrumentedProvider)(nil)

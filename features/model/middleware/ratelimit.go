// Package middleware provides reusable wrappers for the Anthropic and Bedrock
// bridges such as adaptive rate limiting.
package middleware

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"goa.design/anthropic-codec/runtime/model"
)

type (
	// Client is the request surface shared by the SDK bridges. S is the
	// bridge's stream type.
	Client[S any] interface {
		Complete(ctx context.Context, req model.MessageRequest) (model.Message, error)
		Stream(ctx context.Context, req model.MessageRequest) (S, error)
	}

	// AdaptiveRateLimiter applies an AIMD-style adaptive token bucket on top of a
	// Client. It estimates the token cost of each request, blocks callers
	// until capacity is available, and adjusts its effective tokens-per-minute
	// budget when the API answers with a rate_limited error.
	//
	// The limiter is process-local. Callers construct a single instance per
	// process and model, then wrap the bridge with Wrap.
	AdaptiveRateLimiter struct {
		mu sync.Mutex

		limiter *rate.Limiter

		currentTPM float64
		minTPM     float64
		maxTPM     float64

		recoveryRate float64
	}

	limitedClient[S any] struct {
		next    Client[S]
		limiter *AdaptiveRateLimiter
	}
)

// NewAdaptiveRateLimiter constructs a limiter configured with an initial
// tokens-per-minute budget and an upper bound. When maxTPM is zero or less
// than initialTPM, it is clamped to initialTPM.
func NewAdaptiveRateLimiter(initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &AdaptiveRateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

// Wrap returns a client that enforces the limiter for both Complete and
// Stream calls.
func Wrap[S any](l *AdaptiveRateLimiter, next Client[S]) Client[S] {
	return &limitedClient[S]{next: next, limiter: l}
}

// TPM returns the current tokens-per-minute budget.
func (l *AdaptiveRateLimiter) TPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTPM
}

// Complete enforces the limiter before delegating to the underlying client.
func (c *limitedClient[S]) Complete(ctx context.Context, req model.MessageRequest) (model.Message, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return model.Message{}, err
	}
	msg, err := c.next.Complete(ctx, req)
	c.limiter.observe(err)
	return msg, err
}

// Stream enforces the limiter before delegating to the underlying client.
func (c *limitedClient[S]) Stream(ctx context.Context, req model.MessageRequest) (S, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		var zero S
		return zero, err
	}
	s, err := c.next.Stream(ctx, req)
	c.limiter.observe(err)
	return s, err
}

func (l *AdaptiveRateLimiter) wait(ctx context.Context, req model.MessageRequest) error {
	return l.limiter.WaitN(ctx, estimateTokens(req))
}

func (l *AdaptiveRateLimiter) observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	if apiErr, ok := model.AsAPIError(err); ok && apiErr.Kind() == model.ErrorKindRateLimited {
		l.backoff()
	}
}

func (l *AdaptiveRateLimiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setTPM(l.currentTPM * 0.5)
}

func (l *AdaptiveRateLimiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setTPM(l.currentTPM + l.recoveryRate)
}

// setTPM clamps tpm to [minTPM, maxTPM] and applies it. l.mu must be held.
func (l *AdaptiveRateLimiter) setTPM(tpm float64) {
	tpm = max(l.minTPM, min(tpm, l.maxTPM))
	if tpm == l.currentTPM {
		return
	}
	l.currentTPM = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60.0))
	l.limiter.SetBurst(int(tpm))
}

// estimateTokens computes a cheap heuristic for the number of tokens in the
// request. It counts characters in the system prompt, text blocks and text
// tool results, converts them to tokens using a fixed ratio, and adds a
// buffer for framing.
func estimateTokens(req model.MessageRequest) int {
	charCount := 0
	if req.System != nil {
		charCount += len(req.System.Text())
	}
	for _, m := range req.Messages {
		for _, b := range m.Content.Blocks() {
			charCount += blockChars(b)
		}
	}
	if charCount <= 0 {
		return 500
	}
	return max(charCount/3, 1) + 500
}

func blockChars(b model.ContentBlockParam) int {
	v, ok := b.Known()
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case model.TextBlockParam:
		return len(v.Text)
	case model.ToolResultBlockParam:
		if v.Content == nil {
			return 0
		}
		if t, ok := v.Content.Known(); ok {
			if s, ok := t.(model.TextContent); ok {
				return len(s)
			}
		}
	case model.ToolUseBlockParam:
		return len(v.Input)
	}
	return 0
}

// Package render turns a dispatcher payload into the final reply.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/llm"
	"github.com/aiox-platform/concierge/internal/metrics"
	"github.com/aiox-platform/concierge/internal/semcache"
)

const rules = `You write the final answer of a personal assistant from the data below.
Rules:
- Never mention JSON, data formats or tools.
- Be direct and friendly.
- Organize lists so they are easy to scan.
- Highlight monetary totals.
- When listing restaurants, help the user decide the next step.`

var emphasis = map[conversation.Variant]string{
	conversation.VariantGeneric:  "Answer the user's message naturally.",
	conversation.VariantFood:     "Close by telling the user what to do next to order.",
	conversation.VariantFinance:  "Lead with the current price and the change since the previous close.",
	conversation.VariantFootball: "List the headlines with their dates, most recent first.",
}

// DefaultOptions are the generation settings for replies.
var DefaultOptions = llm.GenerateOptions{Temperature: 0.3, MaxTokens: 500}

type Renderer struct {
	gen          llm.Generator
	cache        semcache.Cache
	opts         llm.GenerateOptions
	cacheTimeout time.Duration

	pending sync.WaitGroup
}

type Option func(*Renderer)

// WithCache enables writing finance answers to the semantic cache.
func WithCache(c semcache.Cache, timeout time.Duration) Option {
	return func(r *Renderer) {
		r.cache = c
		if timeout > 0 {
			r.cacheTimeout = timeout
		}
	}
}

func New(gen llm.Generator, opts ...Option) *Renderer {
	r := &Renderer{gen: gen, opts: DefaultOptions, cacheTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render sets FinalResponse. Text payloads pass through untouched; data
// payloads cost exactly one generation call.
func (r *Renderer) Render(ctx context.Context, s *conversation.State) {
	switch s.Payload.Kind {
	case conversation.PayloadText:
		s.FinalResponse = s.Payload.Text
		return
	case conversation.PayloadEmpty:
		s.FinalResponse = conversation.EmptyResponseText
		return
	}

	data, err := json.Marshal(s.Payload.Data)
	if err != nil {
		r.fail(s, fmt.Errorf("encoding payload: %w", err))
		return
	}

	out, err := r.gen.Generate(ctx, BuildPrompt(s.Payload.Variant, s.UserInput(), string(data)), r.opts)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues("renderer").Inc()
		r.fail(s, &conversation.ExternalProviderError{Provider: "renderer", Err: err})
		return
	}

	out = strings.TrimSpace(out)
	if out == "" {
		s.FinalResponse = conversation.EmptyResponseText
		return
	}
	s.FinalResponse = out

	if s.Payload.Variant == conversation.VariantFinance && r.cache != nil {
		r.remember(s.UserInput(), out)
	}
}

func (r *Renderer) fail(s *conversation.State, err error) {
	slog.Error("rendering failed", "error", err, "variant", s.Payload.Variant)
	s.Fail(err)
	s.FinalResponse = s.Payload.Text
}

// remember writes the answer in the background. The turn never waits for it.
func (r *Renderer) remember(question, answer string) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cacheTimeout)
		defer cancel()

		if err := r.cache.Put(ctx, question, answer); err != nil {
			metrics.SemanticCacheTotal.WithLabelValues("put_error").Inc()
			slog.Warn("semantic cache write failed", "error", err)
		}
	}()
}

// Wait blocks until background cache writes have finished.
func (r *Renderer) Wait() {
	r.pending.Wait()
}

// BuildPrompt assembles the generation request for a data payload.
func BuildPrompt(v conversation.Variant, userInput, data string) string {
	var b strings.Builder
	b.WriteString(rules)
	if e, ok := emphasis[v]; ok {
		b.WriteString("\n- ")
		b.WriteString(e)
	}
	fmt.Fprintf(&b, "\n\nUser message:\n%s\n\nData:\n%s\n", userInput, data)
	return b.String()
}

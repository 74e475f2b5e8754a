package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/providers/news"
	"github.com/aiox-platform/concierge/internal/providers/quote"
)

const askTickerText = "Which stock would you like me to look up? Please tell me the company or its ticker, e.g. NVDA or PETR4.SA."

func symbolNotFoundText(symbol string) string {
	return fmt.Sprintf("I couldn't find a quote for %s. Please check the ticker and try again.", symbol)
}

// financeReport is the data handed to the finance renderer.
type financeReport struct {
	Quote     *quote.Quote    `json:"quote"`
	Headlines []news.Headline `json:"headlines"`
}

func (d *Dispatcher) finance(ctx context.Context, s *conversation.State) error {
	if answer, ok := d.cached(ctx, s.UserInput()); ok {
		s.Payload = conversation.TextPayload(conversation.VariantFinance, answer)
		return nil
	}

	if s.Symbol == "" {
		s.Payload = conversation.TextPayload(conversation.VariantFinance, askTickerText)
		return nil
	}

	var report financeReport
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q, err := call(gctx, d.opts.Timeout, "quote", func(ctx context.Context) (*quote.Quote, error) {
			return d.deps.Quotes.Quote(ctx, s.Symbol)
		})
		report.Quote = q
		return err
	})

	g.Go(func() error {
		headlines, err := call(gctx, d.opts.Timeout, "news.finance", func(ctx context.Context) ([]news.Headline, error) {
			return d.deps.News.Finance(ctx, s.Symbol)
		})
		if err != nil {
			slog.Warn("finance news unavailable", "error", err, "symbol", s.Symbol)
			return nil
		}
		report.Headlines = headlines
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, quote.ErrSymbolNotFound) {
			s.Payload = conversation.TextPayload(conversation.VariantFinance, symbolNotFoundText(s.Symbol))
			return nil
		}
		return err
	}

	if report.Headlines == nil {
		report.Headlines = []news.Headline{}
	}
	s.Payload = conversation.DataPayload(conversation.VariantFinance, report)
	return nil
}

// cached looks the question up in the semantic cache. Cache failures count as misses.
func (d *Dispatcher) cached(ctx context.Context, question string) (string, bool) {
	if d.deps.Cache == nil || question == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	answer, ok, err := d.deps.Cache.Get(ctx, question)
	if err != nil {
		slog.Warn("semantic cache lookup failed", "error", err)
		return "", false
	}
	return answer, ok
}

package dispatch

import (
	"context"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/providers/news"
)

type footballNews struct {
	Query     string          `json:"query"`
	Scope     news.Scope      `json:"scope"`
	Headlines []news.Headline `json:"headlines"`
}

func (d *Dispatcher) football(ctx context.Context, s *conversation.State) error {
	query := s.Goal
	if query == "" {
		query = s.UserInput()
	}

	headlines, err := call(ctx, d.opts.Timeout, "news.football", func(ctx context.Context) ([]news.Headline, error) {
		return d.deps.News.Football(ctx, query, d.opts.FootballScope)
	})
	if err != nil {
		return err
	}
	if headlines == nil {
		headlines = []news.Headline{}
	}

	s.Payload = conversation.DataPayload(conversation.VariantFootball, footballNews{
		Query:     query,
		Scope:     d.opts.FootballScope,
		Headlines: headlines,
	})
	return nil
}

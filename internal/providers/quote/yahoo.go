package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/aiox-platform/concierge/internal/providers"
)

// ErrSymbolNotFound is returned when the exchange does not know the symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Quote is a snapshot of a listed instrument.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Currency      string  `json:"currency"`
	MarketState   string  `json:"market_state"`
	Exchange      string  `json:"exchange"`
}

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Yahoo reads quotes from the Yahoo Finance chart endpoint.
type Yahoo struct {
	http    *providers.HTTPClient
	baseURL string
}

func NewYahoo(client *providers.HTTPClient, baseURL string) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Yahoo{http: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				Currency           string   `json:"currency"`
				MarketState        string   `json:"marketState"`
				ExchangeName       string   `json:"exchangeName"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartNotFound is the chart.error code Yahoo uses for unknown symbols.
const chartNotFound = "Not Found"

func (y *Yahoo) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrSymbolNotFound
	}

	body, err := y.http.Get(ctx, fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(symbol)))
	if err != nil {
		if providers.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decoding quote for %s: %w", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, chartNotFound) {
			return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("quote for %s: chart error %s: %s", symbol, e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}

	q := &Quote{
		Symbol:      symbol,
		Price:       *meta.RegularMarketPrice,
		Currency:    meta.Currency,
		MarketState: meta.MarketState,
		Exchange:    meta.ExchangeName,
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}

	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	if prev != nil && *prev != 0 {
		q.PreviousClose = *prev
		q.Change = round2(q.Price - q.PreviousClose)
		q.ChangePercent = round2((q.Price - q.PreviousClose) / q.PreviousClose * 100)
	}
	return q, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

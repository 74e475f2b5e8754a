package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aiox-platform/concierge/internal/conversation"
)

var errNoObject = errors.New("no JSON object found")

type wireResult struct {
	Intent       string                   `mapstructure:"intent"`
	Event        string                   `mapstructure:"event"`
	Goal         string                   `mapstructure:"goal"`
	Topic        string                   `mapstructure:"topic"`
	Symbol       string                   `mapstructure:"symbol"`
	RestaurantID string                   `mapstructure:"restaurant_id"`
	Items        []conversation.OrderItem `mapstructure:"items"`
}

// Parse extracts a classification from free-form model output. It never
// panics: on malformed input it returns Degraded(raw) together with a
// *conversation.ClassificationParseError.
func Parse(raw string) (Result, error) {
	body := extractJSON(raw)
	if body == "" {
		return Degraded(raw), &conversation.ClassificationParseError{Raw: raw, Err: errNoObject}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Degraded(raw), &conversation.ClassificationParseError{Raw: raw, Err: err}
	}

	// Model output is loosely typed ("quantity": "2", "symbol": 123).
	var w wireResult
	if err := mapstructure.WeakDecode(fields, &w); err != nil {
		return Degraded(raw), &conversation.ClassificationParseError{Raw: raw, Err: fmt.Errorf("decoding fields: %w", err)}
	}

	return Result{
		Intent:       normalizeIntent(w.Intent),
		Event:        normalizeEvent(w.Event),
		Goal:         strings.TrimSpace(w.Goal),
		Topic:        strings.TrimSpace(w.Topic),
		Symbol:       strings.ToUpper(strings.TrimSpace(w.Symbol)),
		RestaurantID: strings.TrimSpace(w.RestaurantID),
		Items:        w.Items,
		Raw:          raw,
	}, nil
}

// extractJSON prefers a ```json fenced block and falls back to the span
// between the first '{' and the last '}'.
func extractJSON(s string) string {
	if start := strings.Index(s, "```json"); start >= 0 {
		rest := s[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			if block := strings.TrimSpace(rest[:end]); strings.HasPrefix(block, "{") {
				return block
			}
		}
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first < 0 || last <= first {
		return ""
	}
	return s[first : last+1]
}

func normalizeIntent(s string) Intent {
	v := Intent(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Intents {
		if v == known {
			return v
		}
	}
	return IntentGeneral
}

func normalizeEvent(s string) Event {
	v := Event(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	for _, known := range Events {
		if v == known {
			return v
		}
	}
	return EventOther
}

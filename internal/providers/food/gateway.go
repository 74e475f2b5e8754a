package food

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// ErrToolFailed is returned when the gateway reports a tool-level error.
var ErrToolFailed = errors.New("gateway tool failed")

type User struct {
	UserID       string  `json:"user_id"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Neighborhood string  `json:"neighborhood"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

type MenuItem struct {
	ItemID string  `json:"item_id,omitempty"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

type Restaurant struct {
	ID         string     `json:"restaurant_id,omitempty"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Rating     float64    `json:"rating"`
	PriceLevel string     `json:"price_level"`
	Menu       []MenuItem `json:"menu"`
}

type Location struct {
	City             string       `json:"city"`
	Neighborhood     string       `json:"neighborhood"`
	TotalRestaurants int          `json:"total_restaurants"`
	Restaurants      []Restaurant `json:"restaurants"`
}

type OrderLine struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type Order struct {
	RestaurantID             string      `json:"restaurant_id"`
	Items                    []OrderLine `json:"items"`
	Subtotal                 float64     `json:"subtotal"`
	DeliveryFee              float64     `json:"delivery_fee"`
	ServiceFee               float64     `json:"service_fee"`
	Total                    float64     `json:"total"`
	Currency                 string      `json:"currency"`
	EstimatedDeliveryMinutes int         `json:"estimated_delivery_minutes"`
}

// ToolCaller is the subset of the MCP client the gateway uses.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// MCPGateway calls the delivery tools exposed behind an MCP gateway. Tool
// names are prefixed with the gateway target: "{target}___get-user".
type MCPGateway struct {
	url    string
	target string

	mu     sync.Mutex
	caller ToolCaller
	closer func() error
}

// NewMCPGateway returns a gateway that connects on first use.
func NewMCPGateway(url, target string) *MCPGateway {
	return &MCPGateway{url: url, target: target}
}

// NewMCPGatewayWithCaller uses an already connected caller.
func NewMCPGatewayWithCaller(caller ToolCaller, target string) *MCPGateway {
	return &MCPGateway{target: target, caller: caller}
}

func (g *MCPGateway) connect(ctx context.Context) (ToolCaller, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.caller != nil {
		return g.caller, nil
	}
	if g.url == "" {
		return nil, errors.New("food gateway url not configured")
	}

	c, err := client.NewStreamableHttpClient(g.url)
	if err != nil {
		return nil, fmt.Errorf("creating mcp client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mcp client: %w", err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "concierge", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, init); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	g.caller = c
	g.closer = c.Close
	return c, nil
}

// Close releases the MCP session if one was opened.
func (g *MCPGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closer == nil {
		return nil
	}
	err := g.closer()
	g.caller, g.closer = nil, nil
	return err
}

func (g *MCPGateway) call(ctx context.Context, tool string, args map[string]any, out any) error {
	caller, err := g.connect(ctx)
	if err != nil {
		return err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = fmt.Sprintf("%s___%s", g.target, tool)
	req.Params.Arguments = args

	res, err := caller.CallTool(ctx, req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", tool, err)
	}
	if res == nil {
		return fmt.Errorf("%s: empty tool result", tool)
	}

	text := firstText(res)
	if res.IsError {
		return fmt.Errorf("%s: %w: %s", tool, ErrToolFailed, text)
	}
	if text == "" {
		return fmt.Errorf("%s: empty tool result", tool)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decoding %s result: %w", tool, err)
	}
	return nil
}

func firstText(res *mcp.CallToolResult) string {
	if res == nil || len(res.Content) == 0 {
		return ""
	}
	if tc, ok := mcp.AsTextContent(res.Content[0]); ok {
		return tc.Text
	}
	return ""
}

func (g *MCPGateway) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := g.call(ctx, "get-user", map[string]any{"user_id": userID}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *MCPGateway) SearchLocation(ctx context.Context, city, neighborhood string) (*Location, error) {
	var loc Location
	args := map[string]any{"city": city, "neighborhood": neighborhood}
	if err := g.call(ctx, "location", args, &loc); err != nil {
		return nil, err
	}
	if loc.City == "" {
		loc.City = city
	}
	if loc.Neighborhood == "" {
		loc.Neighborhood = neighborhood
	}
	return &loc, nil
}

func (g *MCPGateway) SimulateOrder(ctx context.Context, restaurantID string, items []conversation.OrderItem) (*Order, error) {
	lines := make([]map[string]any, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, map[string]any{
			"item_id":    it.ItemID,
			"name":       it.Name,
			"unit_price": it.UnitPrice,
			"quantity":   qty,
		})
	}

	var o Order
	args := map[string]any{"restaurant_id": restaurantID, "items": lines}
	if err := g.call(ctx, "order", args, &o); err != nil {
		return nil, err
	}
	if o.Currency == "" {
		o.Currency = "BRL"
	}
	return &o, nil
}

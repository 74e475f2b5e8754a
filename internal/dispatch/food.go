package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/providers/food"
)

// NoRestaurantsText is the reply when a neighborhood has no restaurants.
func NoRestaurantsText(neighborhood, city string) string {
	return fmt.Sprintf("no restaurants in %s, %s", neighborhood, city)
}

func restaurantNotFoundText(name string) string {
	return fmt.Sprintf("I couldn't find %q near you. Which of the listed restaurants would you like to order from?", name)
}

func unknownItemsText(restaurant string, names []string) string {
	return fmt.Sprintf("%s doesn't have %s on its menu. Which dishes would you like instead?",
		restaurant, strings.Join(names, ", "))
}

func orderConfirmedText(o *conversation.OrderRef) string {
	from := o.RestaurantName
	if from == "" {
		from = o.RestaurantID
	}
	return fmt.Sprintf("Done! Your order from %s is confirmed. Total: %s %.2f. The restaurant is preparing it. Anything else I can help with?",
		from, o.Currency, o.Total)
}

// restaurantListing is the data handed to the food renderer after a location search.
type restaurantListing struct {
	City         string            `json:"city"`
	Neighborhood string            `json:"neighborhood"`
	Restaurants  []food.Restaurant `json:"restaurants"`
}

// nearby looks up the actor's location and the restaurants around it. A nil
// listing with a nil error means a text payload was already set.
func (d *Dispatcher) nearby(ctx context.Context, s *conversation.State) (*restaurantListing, error) {
	user, err := call(ctx, d.opts.Timeout, "food.get-user", func(ctx context.Context) (*food.User, error) {
		return d.deps.Food.GetUser(ctx, s.ActorID)
	})
	if err != nil {
		return nil, err
	}

	if user.City == "" || user.Neighborhood == "" {
		s.Payload = conversation.DataPayload(conversation.VariantFood, map[string]string{"error": "location unknown"})
		return nil, nil
	}

	loc, err := call(ctx, d.opts.Timeout, "food.location", func(ctx context.Context) (*food.Location, error) {
		return d.deps.Food.SearchLocation(ctx, user.City, user.Neighborhood)
	})
	if err != nil {
		return nil, err
	}

	if len(loc.Restaurants) == 0 {
		s.Payload = conversation.TextPayload(conversation.VariantFood, NoRestaurantsText(user.Neighborhood, user.City))
		return nil, nil
	}

	return &restaurantListing{City: user.City, Neighborhood: user.Neighborhood, Restaurants: loc.Restaurants}, nil
}

func (d *Dispatcher) foodStart(ctx context.Context, s *conversation.State) error {
	listing, err := d.nearby(ctx, s)
	if err != nil || listing == nil {
		return err
	}
	s.Payload = conversation.DataPayload(conversation.VariantFood, *listing)
	return nil
}

// foodSelect prices the cart from the restaurant's own menu. Entities from
// the classifier only name things; ids and prices always come from the listing.
// When the cart cannot be built the flow stays at start.
func (d *Dispatcher) foodSelect(ctx context.Context, s *conversation.State) error {
	if s.RestaurantID == "" || len(s.Items) == 0 {
		d.backToStart(s, conversation.PickOrderText)
		return nil
	}

	listing, err := d.nearby(ctx, s)
	if err != nil {
		return err
	}
	if listing == nil {
		s.Stage = conversation.StageStart
		return nil
	}

	restaurant := findRestaurant(listing.Restaurants, s.RestaurantID)
	if restaurant == nil {
		d.backToStart(s, restaurantNotFoundText(s.RestaurantID))
		return nil
	}

	items, unknown := priceItems(restaurant.Menu, s.Items)
	if len(unknown) > 0 {
		d.backToStart(s, unknownItemsText(restaurant.Name, unknown))
		return nil
	}

	restaurantID := restaurant.ID
	if restaurantID == "" {
		restaurantID = s.RestaurantID
	}

	order, err := call(ctx, d.opts.Timeout, "food.order", func(ctx context.Context) (*food.Order, error) {
		return d.deps.Food.SimulateOrder(ctx, restaurantID, items)
	})
	if err != nil {
		return err
	}

	s.RestaurantID, s.Items = restaurantID, items
	s.Order = &conversation.OrderRef{
		RestaurantID:   restaurantID,
		RestaurantName: restaurant.Name,
		Total:          order.Total,
		Currency:       order.Currency,
	}
	s.Payload = conversation.DataPayload(conversation.VariantFood, order)
	return nil
}

// foodConfirm only confirms an order simulated in the previous turn.
func (d *Dispatcher) foodConfirm(_ context.Context, s *conversation.State) error {
	if !s.LastEpisode.Confirmable() {
		d.backToStart(s, conversation.PickOrderText)
		return nil
	}
	s.Order = s.LastEpisode.Order
	s.Payload = conversation.TextPayload(conversation.VariantFood, orderConfirmedText(s.Order))
	return nil
}

func (d *Dispatcher) backToStart(s *conversation.State, text string) {
	s.Stage = conversation.StageStart
	s.Order = nil
	s.Payload = conversation.TextPayload(conversation.VariantFood, text)
}

// findRestaurant matches by id first, then by name, ignoring case.
func findRestaurant(restaurants []food.Restaurant, ref string) *food.Restaurant {
	ref = strings.TrimSpace(ref)
	for i := range restaurants {
		if restaurants[i].ID != "" && strings.EqualFold(restaurants[i].ID, ref) {
			return &restaurants[i]
		}
	}
	for i := range restaurants {
		if strings.EqualFold(strings.TrimSpace(restaurants[i].Name), ref) {
			return &restaurants[i]
		}
	}
	return nil
}

// priceItems resolves each requested item against the menu by id or name.
// Names that match nothing are returned in unknown.
func priceItems(menu []food.MenuItem, requested []conversation.OrderItem) (items []conversation.OrderItem, unknown []string) {
	for _, req := range requested {
		m := findMenuItem(menu, req)
		if m == nil {
			name := req.Name
			if name == "" {
				name = req.ItemID
			}
			unknown = append(unknown, name)
			continue
		}
		qty := req.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, conversation.OrderItem{
			ItemID:    m.ItemID,
			Name:      m.Name,
			UnitPrice: m.Price,
			Quantity:  qty,
		})
	}
	return items, unknown
}

func findMenuItem(menu []food.MenuItem, req conversation.OrderItem) *food.MenuItem {
	for i := range menu {
		if req.ItemID != "" && menu[i].ItemID != "" && strings.EqualFold(menu[i].ItemID, req.ItemID) {
			return &menu[i]
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil
	}
	for i := range menu {
		if strings.EqualFold(strings.TrimSpace(menu[i].Name), name) {
			return &menu[i]
		}
	}
	return nil
}

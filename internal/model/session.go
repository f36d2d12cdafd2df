package model

import "time"

// Cart holds the pizzas a diner picked before checkout.
type Cart struct {
	FranchiseID int        `json:"franchise_id,omitempty"`
	StoreID     int        `json:"store_id,omitempty"`
	Items       []MenuItem `json:"items,omitempty"`
}

// IsEmpty returns true if nothing has been added.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Total returns the summed price of the cart.
func (c *Cart) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Price
	}
	return total
}

// ToOrder converts the cart into an order request.
func (c *Cart) ToOrder() Order {
	items := make([]OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, OrderItem{
			MenuID:      it.ID,
			Description: it.Title,
			Price:       it.Price,
		})
	}
	return Order{
		FranchiseID: c.FranchiseID,
		StoreID:     c.StoreID,
		Items:       items,
	}
}

// Session is the per-browser state kept server side.
// Token and User are only set after login or registration.
type Session struct {
	ID        string        `json:"id"`
	Token     string        `json:"token,omitempty"`
	User      *User         `json:"user,omitempty"`
	Cart      Cart          `json:"cart"`
	Receipt   *OrderReceipt `json:"receipt,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsAuthenticated returns true if the session carries a user and token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.Token != ""
}

// CurrentUser returns the session user or nil.
func (s *Session) CurrentUser() *User {
	if !s.IsAuthenticated() {
		return nil
	}
	return s.User
}

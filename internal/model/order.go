package model

import "time"

// MenuItem is a pizza on the menu.
type MenuItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID          int     `json:"id,omitempty"`
	MenuID      int     `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Order is a diner's order placed at a store.
type Order struct {
	ID          int         `json:"id,omitempty"`
	FranchiseID int         `json:"franchiseId"`
	StoreID     int         `json:"storeId"`
	Date        *time.Time  `json:"date,omitempty"`
	Items       []OrderItem `json:"items"`
}

// Total returns the summed price of all items.
func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price
	}
	return total
}

// OrderHistory is a page of a diner's past orders.
type OrderHistory struct {
	DinerID int     `json:"dinerId"`
	Orders  []Order `json:"orders"`
	Page    int     `json:"page"`
}

// OrderReceipt is returned when an order is accepted. JWT is the signed
// proof of purchase issued by the pizza factory.
type OrderReceipt struct {
	Order Order  `json:"order"`
	JWT   string `json:"jwt"`
}

// Verification is the factory's answer to a JWT verification request.
type Verification struct {
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Valid reports whether the factory accepted the JWT.
func (v *Verification) Valid() bool {
	return v != nil && v.Message == "valid"
}

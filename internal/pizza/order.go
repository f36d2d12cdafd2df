package pizza

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// GetMenu returns the pizza menu. No authentication is needed.
// GET /api/order/menu
func (c *Client) GetMenu(ctx context.Context) ([]model.MenuItem, error) {
	var out []model.MenuItem
	if err := c.do(ctx, "get_menu", http.MethodGet, c.baseURL+"/api/order/menu", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMenuItem adds a pizza to the menu and returns the updated menu.
// PUT /api/order/menu
func (c *Client) AddMenuItem(ctx context.Context, token string, item model.MenuItem) ([]model.MenuItem, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out []model.MenuItem
	if err := c.do(ctx, "add_menu_item", http.MethodPut, c.baseURL+"/api/order/menu", token, item, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrders returns a page of the authenticated diner's orders.
// GET /api/order?page=N
func (c *Client) GetOrders(ctx context.Context, token string, page int) (*model.OrderHistory, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	url := c.baseURL + "/api/order"
	if page > 1 {
		url = fmt.Sprintf("%s?page=%d", url, page)
	}
	var out model.OrderHistory
	if err := c.do(ctx, "list_orders", http.MethodGet, url, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order for the authenticated diner.
// POST /api/order
func (c *Client) CreateOrder(ctx context.Context, token string, order model.Order) (*model.OrderReceipt, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out model.OrderReceipt
	if err := c.do(ctx, "create_order", http.MethodPost, c.baseURL+"/api/order", token, order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOrder asks the pizza factory whether a proof-of-purchase JWT is
// authentic. A rejected JWT comes back as an *APIError.
// POST {factory}/api/order/verify
func (c *Client) VerifyOrder(ctx context.Context, token, jwt string) (*model.Verification, error) {
	body := struct {
		JWT string `json:"jwt"`
	}{JWT: jwt}

	var out model.Verification
	if err := c.do(ctx, "verify_order", http.MethodPost, c.factoryURL+"/api/order/verify", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

package pizza

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// ListFranchises returns all franchises with their stores.
// GET /api/franchise
func (c *Client) ListFranchises(ctx context.Context, token string) ([]model.Franchise, error) {
	var out []model.Franchise
	if err := c.do(ctx, "list_franchises", http.MethodGet, c.baseURL+"/api/franchise", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserFranchises returns the franchises the given user administers,
// including store revenue.
// GET /api/franchise/:userId
func (c *Client) GetUserFranchises(ctx context.Context, token string, userID int) ([]model.Franchise, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out []model.Franchise
	url := fmt.Sprintf("%s/api/franchise/%d", c.baseURL, userID)
	if err := c.do(ctx, "list_user_franchises", http.MethodGet, url, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFranchise creates a franchise administered by adminEmail.
// POST /api/franchise
func (c *Client) CreateFranchise(ctx context.Context, token, name, adminEmail string) (*model.Franchise, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	body := model.Franchise{
		Name:   name,
		Admins: []model.FranchiseAdmin{{Email: adminEmail}},
	}
	var out model.Franchise
	if err := c.do(ctx, "create_franchise", http.MethodPost, c.baseURL+"/api/franchise", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFranchise removes a franchise and all of its stores.
// DELETE /api/franchise/:franchiseId
func (c *Client) DeleteFranchise(ctx context.Context, token string, franchiseID int) error {
	if err := requireToken(token); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/franchise/%d", c.baseURL, franchiseID)
	return c.do(ctx, "delete_franchise", http.MethodDelete, url, token, nil, nil)
}

// CreateStore opens a store under a franchise.
// POST /api/franchise/:franchiseId/store
func (c *Client) CreateStore(ctx context.Context, token string, franchiseID int, name string) (*model.Store, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	body := struct {
		FranchiseID int    `json:"franchiseId"`
		Name        string `json:"name"`
	}{FranchiseID: franchiseID, Name: name}

	var out model.Store
	url := fmt.Sprintf("%s/api/franchise/%d/store", c.baseURL, franchiseID)
	if err := c.do(ctx, "create_store", http.MethodPost, url, token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStore closes a store.
// DELETE /api/franchise/:franchiseId/store/:storeId
func (c *Client) DeleteStore(ctx context.Context, token string, franchiseID, storeID int) error {
	if err := requireToken(token); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/franchise/%d/store/%d", c.baseURL, franchiseID, storeID)
	return c.do(ctx, "delete_store", http.MethodDelete, url, token, nil, nil)
}

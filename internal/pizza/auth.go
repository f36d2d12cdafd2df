package pizza

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// RegisterInput holds the fields of a new diner account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput holds credentials of an existing account.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserInput holds the mutable fields of an account.
type UpdateUserInput struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Register creates a diner account and returns it with a session token.
// POST /api/auth
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, "register", http.MethodPost, c.baseURL+"/api/auth", "", input, &out); err != nil {
		return nil, err
	}
	if out.User == nil || out.Token == "" {
		return nil, fmt.Errorf("pizza register: incomplete auth response")
	}
	return &out, nil
}

// Login authenticates an existing user.
// PUT /api/auth
func (c *Client) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, "login", http.MethodPut, c.baseURL+"/api/auth", "", input, &out); err != nil {
		return nil, err
	}
	if out.User == nil || out.Token == "" {
		return nil, fmt.Errorf("pizza login: incomplete auth response")
	}
	return &out, nil
}

// UpdateUser changes name, email or password of a user.
// PUT /api/auth/:userId
func (c *Client) UpdateUser(ctx context.Context, token string, userID int, input UpdateUserInput) (*model.User, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out model.User
	url := fmt.Sprintf("%s/api/auth/%d", c.baseURL, userID)
	if err := c.do(ctx, "update_user", http.MethodPut, url, token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the token on the service.
// DELETE /api/auth
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	return c.do(ctx, "logout", http.MethodDelete, c.baseURL+"/api/auth", token, nil, nil)
}

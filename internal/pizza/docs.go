package pizza

import (
	"context"
	"net/http"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// GetDocs returns the service's endpoint documentation.
// GET /api/docs
func (c *Client) GetDocs(ctx context.Context) (*model.APIDocs, error) {
	var out model.APIDocs
	if err := c.do(ctx, "get_docs", http.MethodGet, c.baseURL+"/api/docs", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

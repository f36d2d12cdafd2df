package pizza

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtpizza/pizzaweb/internal/metrics"
	"github.com/jwtpizza/pizzaweb/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.InMemoryRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := metrics.NewInMemory()
	return NewClient(srv.URL+"/", "", srv.Client(), rec), rec
}

func TestClient_GetUserFranchises(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/franchise/3", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":2,"name":"LotaPizza","admins":[{"id":3,"name":"pizza franchisee","email":"f@jwt.com"}],"stores":[{"id":4,"name":"Lehi","totalRevenue":0.0286}]}]`))
	})

	got, err := client.GetUserFranchises(context.Background(), "tok", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LotaPizza", got[0].Name)
	require.Len(t, got[0].Stores, 1)
	assert.Equal(t, "Lehi", got[0].Stores[0].Name)
	assert.InDelta(t, 0.0286, got[0].Stores[0].TotalRevenue, 1e-9)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.UpstreamRequests["list_user_franchises:success"])
}

func TestClient_CreateStore(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/franchise/1/store", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Orem", body["name"])
		assert.Equal(t, float64(1), body["franchiseId"])

		_, _ = w.Write([]byte(`{"id":7,"franchiseId":1,"name":"Orem"}`))
	})

	store, err := client.CreateStore(context.Background(), "tok", 1, "Orem")
	require.NoError(t, err)
	assert.Equal(t, 7, store.ID)
	assert.Equal(t, "Orem", store.Name)
}

func TestClient_DeleteStore_APIError(t *testing.T) {
	t.Parallel()

	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/franchise/1/store/2", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"unable to delete a store"}`))
	})

	err := client.DeleteStore(context.Background(), "tok", 1, 2)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "delete_store", apiErr.Operation)
	assert.False(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "unable to delete a store", Message(err, "fallback"))
	assert.Equal(t, uint64(1), rec.Snapshot().UpstreamRequests["delete_store:failed"])
}

func TestClient_MissingToken(t *testing.T) {
	t.Parallel()

	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := client.DeleteStore(context.Background(), "", 1, 2)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = client.GetUserFranchises(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, called)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/auth", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body LoginInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "franchisee" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"unknown user"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":3,"name":"pizza franchisee","email":"f@jwt.com","roles":[{"role":"diner"},{"role":"franchisee","objectId":2}]},"token":"abcdef"}`))
	})

	resp, err := client.Login(context.Background(), LoginInput{Email: "f@jwt.com", Password: "franchisee"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", resp.Token)
	assert.True(t, resp.User.HasRole(model.RoleFranchisee))

	_, err = client.Login(context.Background(), LoginInput{Email: "f@jwt.com", Password: "nope"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "unknown user", Message(err, ""))
}

func TestClient_VerifyOrder_UsesFactoryURL(t *testing.T) {
	t.Parallel()

	factory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/order/verify", r.URL.Path)
		var body struct {
			JWT string `json:"jwt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "eyJpYXQ", body.JWT)
		_, _ = w.Write([]byte(`{"message":"valid","payload":{"vendor":{"id":"byucs329"}}}`))
	}))
	t.Cleanup(factory.Close)

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to service: %s", r.URL.Path)
	}))
	t.Cleanup(service.Close)

	client := NewClient(service.URL, factory.URL, nil, nil)
	v, err := client.VerifyOrder(context.Background(), "tok", "eyJpYXQ")
	require.NoError(t, err)
	assert.True(t, v.Valid())
}

func TestClient_GetOrders_Page(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"dinerId":4,"orders":[{"id":1,"franchiseId":1,"storeId":1,"items":[{"id":1,"menuId":1,"description":"Veggie","price":0.05}]}],"page":2}`))
	})

	history, err := client.GetOrders(context.Background(), "tok", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, history.Page)
	require.Len(t, history.Orders, 1)
	assert.InDelta(t, 0.05, history.Orders[0].Total(), 1e-9)
}

func TestClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetMenu(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), rec.Snapshot().UpstreamRequests["get_menu:failed"])
}

func TestNewHTTPClient_DoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "", NewHTTPClient(time.Second), nil)
	_, err := client.GetDocs(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusFound, apiErr.Status)
}

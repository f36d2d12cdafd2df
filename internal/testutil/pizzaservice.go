package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// Seeded accounts of the fake service.
const (
	AdminEmail         = "a@jwt.com"
	AdminPassword      = "admin"
	DinerEmail         = "d@jwt.com"
	DinerPassword      = "diner"
	FranchiseeEmail    = "f@jwt.com"
	FranchiseePassword = "franchisee"
)

type account struct {
	user     model.User
	password string
}

type injectedFailure struct {
	status  int
	message string
}

// PizzaService is an in-memory JWT Pizza service on an httptest.Server.
// Tests can inject failures and delays per operation and inspect calls.
type PizzaService struct {
	server *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account
	tokens     map[string]int
	menu       []model.MenuItem
	franchises []model.Franchise
	orders     map[int][]model.Order
	issuedJWTs map[string]bool
	failures   map[string]injectedFailure
	delays     map[string]time.Duration
	calls      map[string]int
	nextID     int
	leakAll    bool
}

// NewPizzaService starts a seeded fake service that is closed with the test.
func NewPizzaService(t testing.TB) *PizzaService {
	t.Helper()
	s := &PizzaService{
		accounts:   make(map[string]*account),
		tokens:     make(map[string]int),
		orders:     make(map[int][]model.Order),
		issuedJWTs: make(map[string]bool),
		failures:   make(map[string]injectedFailure),
		delays:     make(map[string]time.Duration),
		calls:      make(map[string]int),
		nextID:     100,
	}
	s.seed()
	s.server = httptest.NewServer(s.routes())
	t.Cleanup(s.server.Close)
	return s
}

// URL returns the base URL of the service.
func (s *PizzaService) URL() string {
	return s.server.URL
}

// Fail makes every following call of op answer with status and message.
func (s *PizzaService) Fail(op string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = injectedFailure{status: status, message: message}
}

// Recover removes an injected failure.
func (s *PizzaService) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// Delay holds every following call of op for d, or until the caller goes away.
func (s *PizzaService) Delay(op string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[op] = d
}

// Calls returns how many times op was requested.
func (s *PizzaService) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Franchise returns a copy of the franchise with the given id.
func (s *PizzaService) Franchise(id int) (model.Franchise, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.franchises {
		if f.ID == id {
			return f, true
		}
	}
	return model.Franchise{}, false
}

// AddFranchise seeds an extra franchise.
func (s *PizzaService) AddFranchise(f model.Franchise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.franchises = append(s.franchises, f)
}

// LeakAllFranchises makes GET /api/franchise/:userId return every
// franchise, simulating a service that ignores ownership.
func (s *PizzaService) LeakAllFranchises() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leakAll = true
}

// SetMenu replaces the menu.
func (s *PizzaService) SetMenu(items []model.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = items
}

func (s *PizzaService) seed() {
	s.accounts[AdminEmail] = &account{password: AdminPassword, user: model.User{
		ID: 1, Name: "常用名字", Email: AdminEmail,
		Roles: []model.RoleAssignment{{Role: model.RoleAdmin}},
	}}
	s.accounts[DinerEmail] = &account{password: DinerPassword, user: model.User{
		ID: 2, Name: "pizza diner", Email: DinerEmail,
		Roles: []model.RoleAssignment{{Role: model.RoleDiner}},
	}}
	s.accounts[FranchiseeEmail] = &account{password: FranchiseePassword, user: model.User{
		ID: 3, Name: "pizza franchisee", Email: FranchiseeEmail,
		Roles: []model.RoleAssignment{{Role: model.RoleDiner}, {Role: model.RoleFranchisee, ObjectID: 1}},
	}}

	s.menu = []model.MenuItem{
		{ID: 1, Title: "Veggie", Image: "pizza1.png", Price: 0.0038, Description: "A garden of delight"},
		{ID: 2, Title: "Pepperoni", Image: "pizza2.png", Price: 0.0042, Description: "Spicy treat"},
		{ID: 3, Title: "Japer Pizza", Image: "pizza3.png", Price: 0.008, Description: "Why so serious?"},
	}

	s.franchises = []model.Franchise{
		{
			ID:     1,
			Name:   "pizzaPocket",
			Admins: []model.FranchiseAdmin{{ID: 3, Name: "pizza franchisee", Email: FranchiseeEmail}},
			Stores: []model.Store{
				{ID: 1, FranchiseID: 1, Name: "Orem", Address: "234 N 300 S", TotalRevenue: 3000000},
				{ID: 2, FranchiseID: 1, Name: "Provo", Address: "234 N 300 S", TotalRevenue: 53000},
				{ID: 3, FranchiseID: 1, Name: "Payson", Address: "234 N 300 S", TotalRevenue: 458767832},
			},
		},
		{
			ID:     2,
			Name:   "SliceCo",
			Admins: []model.FranchiseAdmin{{ID: 9, Name: "slice owner", Email: "s@jwt.com"}},
			Stores: []model.Store{{ID: 10, FranchiseID: 2, Name: "Lehi", TotalRevenue: 12}},
		},
	}
}

func (s *PizzaService) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/auth", s.op("register", s.register))
	r.Put("/api/auth", s.op("login", s.login))
	r.Delete("/api/auth", s.op("logout", s.authed(s.logout)))
	r.Put("/api/auth/{userID}", s.op("update_user", s.authed(s.updateUser)))

	r.Get("/api/order/menu", s.op("get_menu", s.getMenu))
	r.Put("/api/order/menu", s.op("add_menu_item", s.authed(s.addMenuItem)))
	r.Get("/api/order", s.op("list_orders", s.authed(s.listOrders)))
	r.Post("/api/order", s.op("create_order", s.authed(s.createOrder)))
	r.Post("/api/order/verify", s.op("verify_order", s.verifyOrder))

	r.Get("/api/franchise", s.op("list_franchises", s.listFranchises))
	r.Post("/api/franchise", s.op("create_franchise", s.authed(s.createFranchise)))
	r.Get("/api/franchise/{userID}", s.op("list_user_franchises", s.authed(s.listUserFranchises)))
	r.Delete("/api/franchise/{franchiseID}", s.op("delete_franchise", s.authed(s.deleteFranchise)))
	r.Post("/api/franchise/{franchiseID}/store", s.op("create_store", s.authed(s.createStore)))
	r.Delete("/api/franchise/{franchiseID}/store/{storeID}", s.op("delete_store", s.authed(s.deleteStore)))

	r.Get("/api/docs", s.op("get_docs", s.docs))

	return r
}

// op counts the call and applies injected delays and failures.
func (s *PizzaService) op(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		delay := s.delays[name]
		failure, failing := s.failures[name]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeJSON(w, failure.status, map[string]string{"message": failure.message})
			return
		}
		next(w, r)
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user model.User)

func (s *PizzaService) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		var user model.User
		if ok {
			for _, a := range s.accounts {
				if a.user.ID == userID {
					user = a.user
				}
			}
		}
		s.mu.Unlock()

		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next(w, r, user)
	}
}

func (s *PizzaService) issueToken(userID int) string {
	s.nextID++
	token := fmt.Sprintf("tok-%d-%d", userID, s.nextID)
	s.tokens[token] = userID
	return token
}

func (s *PizzaService) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name, email, and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "email already registered"})
		return
	}
	s.nextID++
	a := &account{password: req.Password, user: model.User{
		ID: s.nextID, Name: req.Name, Email: req.Email,
		Roles: []model.RoleAssignment{{Role: model.RoleDiner}},
	}}
	s.accounts[req.Email] = a
	writeJSON(w, http.StatusOK, map[string]any{"user": a.user, "token": s.issueToken(a.user.ID)})
}

func (s *PizzaService) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[req.Email]
	if !ok || a.password != req.Password {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown user"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": a.user, "token": s.issueToken(a.user.ID)})
}

func (s *PizzaService) logout(w http.ResponseWriter, r *http.Request, _ model.User) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

func (s *PizzaService) updateUser(w http.ResponseWriter, r *http.Request, user model.User) {
	id, _ := strconv.Atoi(chi.URLParam(r, "userID"))
	if id != user.ID && !user.HasRole(model.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unauthorized"})
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	for email, a := range s.accounts {
		if a.user.ID != id {
			continue
		}
		if req.Name != "" {
			a.user.Name = req.Name
		}
		if req.Password != "" {
			a.password = req.Password
		}
		if req.Email != "" && req.Email != email {
			delete(s.accounts, email)
			a.user.Email = req.Email
			s.accounts[req.Email] = a
		}
		writeJSON(w, http.StatusOK, a.user)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown user"})
}

func (s *PizzaService) getMenu(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.menu)
}

func (s *PizzaService) addMenuItem(w http.ResponseWriter, r *http.Request, user model.User) {
	if !user.HasRole(model.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unable to add menu item"})
		return
	}
	var item model.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad menu item"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.menu = append(s.menu, item)
	writeJSON(w, http.StatusOK, s.menu)
}

func (s *PizzaService) listOrders(w http.ResponseWriter, r *http.Request, user model.User) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.orders[user.ID]
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, model.OrderHistory{DinerID: user.ID, Orders: orders, Page: page})
}

func (s *PizzaService) createOrder(w http.ResponseWriter, r *http.Request, user model.User) {
	var order model.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil || len(order.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "order has no items"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	order.ID = s.nextID
	now := time.Now().UTC()
	order.Date = &now
	s.orders[user.ID] = append(s.orders[user.ID], order)

	jwt := fmt.Sprintf("eyJpYXQ.%d.sig", order.ID)
	s.issuedJWTs[jwt] = true
	writeJSON(w, http.StatusOK, model.OrderReceipt{Order: order, JWT: jwt})
}

func (s *PizzaService) verifyOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JWT string `json:"jwt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	valid := s.issuedJWTs[req.JWT]
	s.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "valid",
		"payload": map[string]any{"vendor": map[string]string{"id": "fake", "name": "Fake Factory"}},
	})
}

func (s *PizzaService) listFranchises(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Franchise, 0, len(s.franchises))
	for _, f := range s.franchises {
		stores := make([]model.Store, 0, len(f.Stores))
		for _, st := range f.Stores {
			stores = append(stores, model.Store{ID: st.ID, Name: st.Name})
		}
		out = append(out, model.Franchise{ID: f.ID, Name: f.Name, Admins: f.Admins, Stores: stores})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *PizzaService) listUserFranchises(w http.ResponseWriter, r *http.Request, user model.User) {
	id, _ := strconv.Atoi(chi.URLParam(r, "userID"))
	if id != user.ID && !user.HasRole(model.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unauthorized"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Franchise{}
	for _, f := range s.franchises {
		if s.leakAll || f.AdministeredBy(id) {
			out = append(out, f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *PizzaService) createFranchise(w http.ResponseWriter, r *http.Request, user model.User) {
	if !user.HasRole(model.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unable to create a franchise"})
		return
	}
	var req model.Franchise
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || len(req.Admins) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name and admin are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	admins := make([]model.FranchiseAdmin, 0, len(req.Admins))
	for _, adm := range req.Admins {
		a, ok := s.accounts[adm.Email]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown user for franchise admin " + adm.Email + " provided"})
			return
		}
		admins = append(admins, model.FranchiseAdmin{ID: a.user.ID, Name: a.user.Name, Email: a.user.Email})
	}
	s.nextID++
	f := model.Franchise{ID: s.nextID, Name: req.Name, Admins: admins, Stores: []model.Store{}}
	s.franchises = append(s.franchises, f)
	writeJSON(w, http.StatusOK, f)
}

func (s *PizzaService) deleteFranchise(w http.ResponseWriter, r *http.Request, user model.User) {
	if !user.HasRole(model.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unable to delete a franchise"})
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "franchiseID"))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.franchises = slices.DeleteFunc(s.franchises, func(f model.Franchise) bool { return f.ID == id })
	writeJSON(w, http.StatusOK, map[string]string{"message": "franchise deleted"})
}

// franchiseFor returns the index of a franchise the user may manage, or -1.
// Callers hold s.mu.
func (s *PizzaService) franchiseFor(user model.User, id int) (int, bool) {
	for i, f := range s.franchises {
		if f.ID != id {
			continue
		}
		return i, user.HasRole(model.RoleAdmin) || f.AdministeredBy(user.ID)
	}
	return -1, false
}

func (s *PizzaService) createStore(w http.ResponseWriter, r *http.Request, user model.User) {
	id, _ := strconv.Atoi(chi.URLParam(r, "franchiseID"))
	var req struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	i, allowed := s.franchiseFor(user, id)
	if !allowed {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unable to create a store"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "store name is required"})
		return
	}
	s.nextID++
	store := model.Store{ID: s.nextID, FranchiseID: id, Name: req.Name}
	s.franchises[i].Stores = append(s.franchises[i].Stores, store)
	writeJSON(w, http.StatusOK, store)
}

func (s *PizzaService) deleteStore(w http.ResponseWriter, r *http.Request, user model.User) {
	id, _ := strconv.Atoi(chi.URLParam(r, "franchiseID"))
	storeID, _ := strconv.Atoi(chi.URLParam(r, "storeID"))

	s.mu.Lock()
	defer s.mu.Unlock()
	i, allowed := s.franchiseFor(user, id)
	if !allowed {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unable to delete a store"})
		return
	}
	s.franchises[i].Stores = slices.DeleteFunc(s.franchises[i].Stores, func(st model.Store) bool { return st.ID == storeID })
	writeJSON(w, http.StatusOK, map[string]string{"message": "store deleted"})
}

func (s *PizzaService) docs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SampleDocs())
}

// SampleDocs returns the endpoint documentation served by the fake.
func SampleDocs() model.APIDocs {
	return model.APIDocs{
		Version: "20240518.154317",
		Endpoints: []model.Endpoint{
			{
				Method:      http.MethodPost,
				Path:        "/api/auth",
				Description: "Register a new user",
				Example:     `curl -X POST localhost:3000/api/auth -d '{"name":"pizza diner", "email":"d@jwt.com", "password":"diner"}' -H 'Content-Type: application/json'`,
				Response:    json.RawMessage(`{"user":{"id":2,"name":"pizza diner","email":"d@jwt.com","roles":[{"role":"diner"}]},"token":"tttttt"}`),
			},
			{
				Method:      http.MethodPut,
				Path:        "/api/auth",
				Description: "Login existing user",
				Example:     `curl -X PUT localhost:3000/api/auth -d '{"email":"a@jwt.com", "password":"admin"}' -H 'Content-Type: application/json'`,
				Response:    json.RawMessage(`{"user":{"id":1,"name":"常用名字","email":"a@jwt.com","roles":[{"role":"admin"}]},"token":"tttttt"}`),
			},
			{
				Method:       http.MethodPut,
				Path:         "/api/auth/:userId",
				RequiresAuth: true,
				Description:  "Update user",
				Example:      `curl -X PUT localhost:3000/api/auth/1 -d '{"email":"a@jwt.com", "password":"admin"}' -H 'Content-Type: application/json' -H 'Authorization: Bearer tttttt'`,
				Response:     json.RawMessage(`{"id":1,"name":"常用名字","email":"a@jwt.com","roles":[{"role":"admin"}]}`),
			},
			{
				Method:      http.MethodGet,
				Path:        "/api/order/menu",
				Description: "Get the pizza **menu**",
				Example:     `curl localhost:3000/api/order/menu`,
				Response:    json.RawMessage(`[{"id":1,"title":"Veggie","image":"pizza1.png","price":0.0038,"description":"A garden of delight"}]`),
			},
			{
				Method:       http.MethodPost,
				Path:         "/api/franchise/:franchiseId/store",
				RequiresAuth: true,
				Description:  "Create a new franchise store",
				Example:      `curl -X POST localhost:3000/api/franchise/1/store -H 'Content-Type: application/json' -d '{"franchiseId": 1, "name":"SLC"}' -H 'Authorization: Bearer tttttt'`,
				Response:     json.RawMessage(`{"id":1,"franchiseId":1,"name":"SLC"}`),
			},
			{
				Method:       http.MethodDelete,
				Path:         "/api/franchise/:franchiseId/store/:storeId",
				RequiresAuth: true,
				Description:  "Delete a store",
				Example:      `curl -X DELETE localhost:3000/api/franchise/1/store/1  -H 'Authorization: Bearer tttttt'`,
				Response:     json.RawMessage(`{"message":"store deleted"}`),
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

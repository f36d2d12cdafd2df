package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/testutil"
)

const pitch = "So you want a piece of the pie?"

func TestFranchiseDashboard_Unauthorized(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "anonymous"},
		{name: "diner", email: testutil.DinerEmail, password: testutil.DinerPassword},
		{name: "admin", email: testutil.AdminEmail, password: testutil.AdminPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.browser(t)
			if tt.email != "" {
				b.login("/login", tt.email, tt.password)
			}

			resp := b.get("/franchise-dashboard")
			require.Equal(t, http.StatusOK, resp.status)
			assert.Contains(t, resp.body, pitch)
			assert.Contains(t, resp.body, `href="/franchise-dashboard/login"`)
			assert.NotContains(t, resp.body, "pizzaPocket")
			assert.Equal(t, 0, env.svc.Calls("list_user_franchises"))
		})
	}
}

func TestFranchiseDashboard_Authorized(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/franchise-dashboard/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, 1, env.svc.Calls("list_user_franchises"))
	assert.NotContains(t, resp.body, pitch)

	tests := []struct {
		name string
		want string
	}{
		{"title is the franchise name", "<h2>pizzaPocket</h2>"},
		{"orem revenue", "$3,000,000"},
		{"payson revenue", "$458,767,832"},
		{"close link", `href="/franchise-dashboard/close-store/1/2"`},
		{"create store form starts empty", `<input type="text" name="store" placeholder="store name"`},
		{"avatar", ">PF<"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, resp.body, tt.want)
		})
	}
}

func TestFranchiseDashboard_LoginReturnsToSection(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.post("/franchise-dashboard/login", url.Values{
		"email":    {testutil.FranchiseeEmail},
		"password": {testutil.FranchiseePassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/franchise-dashboard", resp.location)
}

func TestFranchiseDashboard_OnlyOwnedFranchises(t *testing.T) {
	env := newTestEnv(t)
	env.svc.LeakAllFranchises()
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Orem")
	assert.NotContains(t, resp.body, "SliceCo")
	assert.NotContains(t, resp.body, "Lehi")
}

func TestFranchiseDashboard_SeveralFranchises(t *testing.T) {
	env := newTestEnv(t)
	env.svc.AddFranchise(model.Franchise{
		ID:     3,
		Name:   "crustCorp",
		Admins: []model.FranchiseAdmin{{ID: 3, Name: "pizza franchisee", Email: testutil.FranchiseeEmail}},
		Stores: []model.Store{{ID: 30, FranchiseID: 3, Name: "Springville", TotalRevenue: 7}},
	})
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "<h2>Pizza pie central</h2>")
	assert.Contains(t, resp.body, "pizzaPocket")
	assert.Contains(t, resp.body, "crustCorp")
	assert.Contains(t, resp.body, "<td>Springville</td>")
	assert.Contains(t, resp.body, `href="/franchise-dashboard/close-store/3/30"`)
}

func TestFranchiseDashboard_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)
	env.svc.Fail("list_user_franchises", http.StatusUnauthorized, "unauthorized")

	resp := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/franchise-dashboard/login", resp.location)

	// The session is gone, so the pitch is shown without asking the service.
	env.svc.Recover("list_user_franchises")
	calls := env.svc.Calls("list_user_franchises")
	resp = b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, pitch)
	assert.Equal(t, calls, env.svc.Calls("list_user_franchises"))
}

func TestFranchiseDashboard_RepeatedGetsAreIdentical(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	first := b.get("/franchise-dashboard")
	second := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, first.status)
	assert.Equal(t, first.body, second.body)
	assert.Equal(t, 2, env.svc.Calls("list_user_franchises"))
}

func TestFranchiseDashboard_FetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Fail("list_user_franchises", http.StatusInternalServerError, "database down")
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.get("/franchise-dashboard")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Unable to load your franchises")
	assert.Contains(t, resp.body, `<a href="/franchise-dashboard">Retry</a>`)
	assert.NotContains(t, resp.body, pitch)

	env.svc.Recover("list_user_franchises")
	resp = b.get("/franchise-dashboard")
	assert.Contains(t, resp.body, "Orem")
}

func TestCreateStore_NavigationState(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.post("/franchise-dashboard", url.Values{"franchiseId": {"1"}, "store": {"Orem"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/franchise-dashboard/create-store", resp.location)

	resp = b.get("/franchise-dashboard/create-store")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, `value="Orem"`)
	assert.Contains(t, resp.body, "pizzaPocket")

	// The state is consumed by the first render.
	resp = b.get("/franchise-dashboard/create-store")
	require.Equal(t, http.StatusOK, resp.status)
	assert.NotContains(t, resp.body, `value="Orem"`)
}

func TestCreateStore_DashboardPassesNameThrough(t *testing.T) {
	tests := []struct {
		name  string
		store string
	}{
		{"whitespace", "   "},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.browser(t)
			b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

			resp := b.post("/franchise-dashboard", url.Values{"franchiseId": {"1"}, "store": {tt.store}})
			require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
			assert.Equal(t, "/franchise-dashboard/create-store", resp.location)

			resp = b.get("/franchise-dashboard/create-store")
			require.Equal(t, http.StatusOK, resp.status)
			assert.Contains(t, resp.body, `name="store" value="`+tt.store+`"`)
			assert.NotContains(t, resp.body, "Store name is required")
			assert.Equal(t, 0, env.svc.Calls("create_store"))
		})
	}
}

func TestCreateStore_NavigationStateIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	owner := env.browser(t)
	owner.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)
	other := env.browser(t)
	other.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	owner.post("/franchise-dashboard", url.Values{"franchiseId": {"1"}, "store": {"Springville"}})

	resp := other.get("/franchise-dashboard/create-store")
	require.Equal(t, http.StatusOK, resp.status)
	assert.NotContains(t, resp.body, "Springville")

	resp = owner.get("/franchise-dashboard/create-store")
	assert.Contains(t, resp.body, `value="Springville"`)
}

func TestCreateStore(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.post("/franchise-dashboard/create-store", url.Values{"franchiseId": {"1"}, "store": {"  Spanish Fork "}})
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	assert.Equal(t, "/franchise-dashboard", resp.location)

	f, ok := env.svc.Franchise(1)
	require.True(t, ok)
	require.Len(t, f.Stores, 4)
	assert.Equal(t, "Spanish Fork", f.Stores[3].Name)

	resp = b.get("/franchise-dashboard")
	assert.Contains(t, resp.body, "Created store Spanish Fork")
	assert.Contains(t, resp.body, "<td>Spanish Fork</td>")

	// The notice is shown once.
	resp = b.get("/franchise-dashboard")
	assert.NotContains(t, resp.body, "Created store Spanish Fork")

	assert.Equal(t, uint64(1), env.metrics.Snapshot().StoresCreated)
	entries := env.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditEntityStore, entries[0].Entity)
	assert.Equal(t, model.AuditActionCreate, entries[0].Action)
	assert.Equal(t, model.AuditOutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, 3, entries[0].UserID)
}

func TestCreateStore_Validation(t *testing.T) {
	tests := []struct {
		name  string
		store string
		want  string
	}{
		{"blank", "   ", "Store name is required"},
		{"too long", strings.Repeat("x", MaxEntityNameLength+1), "Store name is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			b := env.browser(t)
			b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

			resp := b.post("/franchise-dashboard/create-store", url.Values{"franchiseId": {"1"}, "store": {tt.store}})
			assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
			assert.Contains(t, resp.body, tt.want)
			assert.Equal(t, 0, env.svc.Calls("create_store"))
		})
	}
}

func TestCreateStore_ForeignFranchise(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.post("/franchise-dashboard/create-store", url.Values{"franchiseId": {"2"}, "store": {"Lindon"}})
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, 0, env.svc.Calls("create_store"))
}

func TestCloseStore(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.get("/franchise-dashboard/close-store/1/2")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Provo")
	assert.Contains(t, resp.body, "pizzaPocket")

	resp = b.post("/franchise-dashboard/close-store/1/2", nil)
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	assert.Equal(t, "/franchise-dashboard", resp.location)

	resp = b.get("/franchise-dashboard")
	assert.Contains(t, resp.body, "Deleted store Provo")
	assert.NotContains(t, resp.body, "<td>Provo</td>")
	assert.Contains(t, resp.body, "<td>Orem</td>")
	assert.Equal(t, uint64(1), env.metrics.Snapshot().StoresDeleted)
}

func TestCloseStore_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Fail("delete_store", http.StatusInternalServerError, "store is busy")
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.post("/franchise-dashboard/close-store/1/2", nil)
	require.Equal(t, http.StatusBadGateway, resp.status)
	assert.Contains(t, resp.body, "store is busy")
	assert.Contains(t, resp.body, "<td>Provo</td>")
	assert.Contains(t, resp.body, "<td>Orem</td>")

	f, ok := env.svc.Franchise(1)
	require.True(t, ok)
	assert.Len(t, f.Stores, 3)

	entries := env.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditOutcomeFailed, entries[0].Outcome)
}

func TestCloseStore_AlreadyDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Fail("delete_store", http.StatusNotFound, "store not found")
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	resp := b.post("/franchise-dashboard/close-store/1/2", nil)
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)

	resp = b.get("/franchise-dashboard")
	assert.Contains(t, resp.body, "Deleted store Provo")

	entries := env.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditOutcomeSuccess, entries[0].Outcome)
}

func TestCloseStore_ForeignStore(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.FranchiseeEmail, testutil.FranchiseePassword)

	assert.Equal(t, http.StatusNotFound, b.get("/franchise-dashboard/close-store/2/10").status)
	assert.Equal(t, http.StatusNotFound, b.post("/franchise-dashboard/close-store/2/10", nil).status)
	assert.Equal(t, http.StatusNotFound, b.post("/franchise-dashboard/close-store/1/10", nil).status)
	assert.Equal(t, 0, env.svc.Calls("delete_store"))

	f, ok := env.svc.Franchise(2)
	require.True(t, ok)
	assert.Len(t, f.Stores, 1)
}

func TestCloseStore_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.login("/login", testutil.DinerEmail, testutil.DinerPassword)

	resp := b.post("/franchise-dashboard/close-store/1/2", nil)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/franchise-dashboard", resp.location)
	assert.Equal(t, 0, env.svc.Calls("delete_store"))
}

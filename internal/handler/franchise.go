package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

const (
	franchiseDashboardPath = "/franchise-dashboard"
	createStorePath        = "/franchise-dashboard/create-store"
)

// CreateStoreState is the navigation state handed from the dashboard to
// the create-store page.
type CreateStoreState struct {
	Store       string `json:"store"`
	FranchiseID int    `json:"franchiseId,omitempty"`
}

// loadFranchiseDashboard decides the variant and, for franchisees only,
// fetches the franchises of the session user.
func (h *Handler) loadFranchiseDashboard(r *http.Request) view.FranchiseDashboard {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if view.Decide(user, model.RoleFranchisee) != view.VariantAuthorized {
		return view.NewFranchiseDashboard(user, view.Loading[[]model.Franchise]())
	}

	token := auth.TokenFromContext(ctx)
	state := fetch(ctx, func(ctx context.Context) ([]model.Franchise, error) {
		return h.pizza.GetUserFranchises(ctx, token, user.ID)
	})
	if state.IsFailed() {
		h.logUpstream(r, "list_user_franchises", state.Err())
	}
	return view.NewFranchiseDashboard(user, state)
}

func (h *Handler) renderFranchiseDashboard(w http.ResponseWriter, r *http.Request, status int, d view.FranchiseDashboard) {
	h.metrics.IncViewRendered("franchise_dashboard", string(d.Variant))
	h.render(w, r, status, "franchise_dashboard", h.page(r, d.Title(), &d))
}

// FranchiseDashboard renders the store management page, or the franchise
// pitch for everyone who is not a franchisee.
// GET /franchise-dashboard
func (h *Handler) FranchiseDashboard(w http.ResponseWriter, r *http.Request) {
	d := h.loadFranchiseDashboard(r)
	if d.State.IsFailed() && h.endExpiredSession(w, r, d.State.Err()) {
		return
	}
	h.renderFranchiseDashboard(w, r, http.StatusOK, d)
}

// StartCreateStore hands the typed store name to the create-store page.
// The name is passed through as typed; it is checked where the store is
// actually created.
// POST /franchise-dashboard
func (h *Handler) StartCreateStore(w http.ResponseWriter, r *http.Request) {
	if view.Decide(auth.UserFromContext(r.Context()), model.RoleFranchisee) != view.VariantAuthorized {
		redirect(w, r, franchiseDashboardPath)
		return
	}

	state := CreateStoreState{
		Store:       r.PostFormValue("store"),
		FranchiseID: formInt(r, "franchiseId"),
	}
	if err := h.putNavState(r, createStorePath, state); err != nil {
		h.logError(r, "store navigation state failed", err)
	}
	redirect(w, r, createStorePath)
}

// CreateStoreForm renders the create-store page, pre-filled from the
// navigation state left by the dashboard. The state is consumed here.
// GET /franchise-dashboard/create-store
func (h *Handler) CreateStoreForm(w http.ResponseWriter, r *http.Request) {
	var state CreateStoreState
	h.takeNavState(r, &state)

	d := h.loadFranchiseDashboard(r)
	if !d.Authorized() {
		redirect(w, r, franchiseDashboardPath)
		return
	}

	form := &view.CreateStore{FranchiseID: state.FranchiseID, StoreName: state.Store}
	status := http.StatusOK
	switch {
	case d.State.IsFailed():
		form.Error = pizza.Message(d.State.Err(), "Unable to load your franchises")
		status = upstreamStatus(d.State.Err())
	default:
		section, ok := pickSection(d, state.FranchiseID)
		if !ok {
			redirect(w, r, franchiseDashboardPath)
			return
		}
		form.FranchiseID = section.ID
		form.FranchiseName = section.Name
	}
	h.render(w, r, status, "create_store", h.page(r, view.TitleCreateStore, form))
}

// CreateStore validates the store name and creates the store.
// POST /franchise-dashboard/create-store
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	form := &view.CreateStore{
		FranchiseID: formInt(r, "franchiseId"),
		StoreName:   r.PostFormValue("store"),
	}

	d := h.loadFranchiseDashboard(r)
	if !d.Authorized() {
		redirect(w, r, franchiseDashboardPath)
		return
	}
	if d.State.IsFailed() {
		form.Error = pizza.Message(d.State.Err(), "Unable to load your franchises")
		h.render(w, r, upstreamStatus(d.State.Err()), "create_store", h.page(r, view.TitleCreateStore, form))
		return
	}
	section, ok := pickSection(d, form.FranchiseID)
	if !ok {
		h.NotFound(w, r)
		return
	}
	form.FranchiseID = section.ID
	form.FranchiseName = section.Name

	name, err := ValidateEntityName(form.StoreName)
	if err != nil {
		form.Error = "Store " + err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "create_store", h.page(r, view.TitleCreateStore, form))
		return
	}

	ctx := r.Context()
	store, err := h.pizza.CreateStore(ctx, auth.TokenFromContext(ctx), section.ID, name)
	h.recordAudit(r, model.AuditEntry{
		Entity:      model.AuditEntityStore,
		Action:      model.AuditActionCreate,
		FranchiseID: section.ID,
		StoreID:     storeID(store),
		Name:        name,
	}, err)
	if err != nil {
		h.logUpstream(r, "create_store", err)
		form.Error = pizza.Message(err, "Unable to create store")
		h.render(w, r, upstreamStatus(err), "create_store", h.page(r, view.TitleCreateStore, form))
		return
	}

	h.metrics.IncStoreCreated()
	h.notify(r, franchiseDashboardPath, "Created store "+name)
	redirect(w, r, franchiseDashboardPath)
}

// CloseStoreForm asks the franchisee to confirm closing a store.
// GET /franchise-dashboard/close-store/{franchiseID}/{storeID}
func (h *Handler) CloseStoreForm(w http.ResponseWriter, r *http.Request) {
	d := h.loadFranchiseDashboard(r)
	if !d.Authorized() {
		redirect(w, r, franchiseDashboardPath)
		return
	}
	if d.State.IsFailed() {
		h.renderFranchiseDashboard(w, r, upstreamStatus(d.State.Err()), d)
		return
	}

	section, row, ok := findRow(d, r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "close_store", h.page(r, view.TitleCloseStore, &view.CloseStore{
		Back:          franchiseDashboardPath,
		FranchiseID:   section.ID,
		FranchiseName: section.Name,
		StoreID:       row.ID,
		StoreName:     row.Name,
	}))
}

// CloseStore deletes a store of one of the user's franchises. On failure
// the dashboard is shown again with the list as it was and the error next
// to the store.
// POST /franchise-dashboard/close-store/{franchiseID}/{storeID}
func (h *Handler) CloseStore(w http.ResponseWriter, r *http.Request) {
	d := h.loadFranchiseDashboard(r)
	if !d.Authorized() {
		redirect(w, r, franchiseDashboardPath)
		return
	}
	if d.State.IsFailed() {
		h.renderFranchiseDashboard(w, r, upstreamStatus(d.State.Err()), d)
		return
	}

	section, row, ok := findRow(d, r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	ctx := r.Context()
	err := h.pizza.DeleteStore(ctx, auth.TokenFromContext(ctx), section.ID, row.ID)
	if pizza.IsNotFound(err) {
		// Already gone.
		err = nil
	}
	h.recordAudit(r, model.AuditEntry{
		Entity:      model.AuditEntityStore,
		Action:      model.AuditActionDelete,
		FranchiseID: section.ID,
		StoreID:     row.ID,
		Name:        row.Name,
	}, err)
	if err != nil {
		h.logUpstream(r, "delete_store", err)
		msg := pizza.Message(err, fmt.Sprintf("Unable to close %s", row.Name))
		h.renderFranchiseDashboard(w, r, upstreamStatus(err), d.WithRowError(section.ID, row.ID, msg))
		return
	}

	h.metrics.IncStoreDeleted()
	h.notify(r, franchiseDashboardPath, "Deleted store "+row.Name)
	redirect(w, r, franchiseDashboardPath)
}

// pickSection returns the owned franchise with the given id, or the first
// one when id is zero.
func pickSection(d view.FranchiseDashboard, id int) (view.FranchiseSection, bool) {
	if id == 0 {
		if len(d.Sections) == 0 {
			return view.FranchiseSection{}, false
		}
		return d.Sections[0], true
	}
	return d.Section(id)
}

func findRow(d view.FranchiseDashboard, r *http.Request) (view.FranchiseSection, view.StoreRow, bool) {
	fid, err1 := strconv.Atoi(chi.URLParam(r, "franchiseID"))
	sid, err2 := strconv.Atoi(chi.URLParam(r, "storeID"))
	if err1 != nil || err2 != nil {
		return view.FranchiseSection{}, view.StoreRow{}, false
	}
	section, ok := d.Section(fid)
	if !ok {
		return view.FranchiseSection{}, view.StoreRow{}, false
	}
	for _, row := range section.Rows {
		if row.ID == sid {
			return section, row, true
		}
	}
	return view.FranchiseSection{}, view.StoreRow{}, false
}

func storeID(s *model.Store) int {
	if s == nil {
		return 0
	}
	return s.ID
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

const (
	adminDashboardPath = "/admin-dashboard"

	// auditListLimit is how many audit entries the dashboard shows.
	auditListLimit = 10

	defaultPizzaImage = "pizza1.png"
)

func (h *Handler) listFranchises(r *http.Request) view.Remote[[]model.Franchise] {
	ctx := r.Context()
	token := auth.TokenFromContext(ctx)
	state := fetch(ctx, func(ctx context.Context) ([]model.Franchise, error) {
		return h.pizza.ListFranchises(ctx, token)
	})
	if state.IsFailed() {
		h.logUpstream(r, "list_franchises", state.Err())
	}
	return state
}

// AdminDashboard lists every franchise with its stores, next to the most
// recent management actions.
// GET /admin-dashboard
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	data := &view.AdminDashboard{}

	var g errgroup.Group
	g.Go(func() error {
		data.Franchises = h.listFranchises(r)
		return nil
	})
	g.Go(func() error {
		entries, err := h.audit.ListRecent(r.Context(), auditListLimit)
		if err != nil {
			h.logError(r, "list audit entries failed", err)
			return nil
		}
		data.Audit = entries
		return nil
	})
	_ = g.Wait()

	h.metrics.IncViewRendered("admin_dashboard", string(view.VariantAuthorized))
	h.render(w, r, http.StatusOK, "admin_dashboard", h.page(r, view.TitleAdminDashboard, data))
}

// CreateFranchiseForm renders the franchise creation form.
// GET /admin-dashboard/create-franchise
func (h *Handler) CreateFranchiseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "create_franchise", h.page(r, view.TitleCreateFranchise, &view.CreateFranchise{}))
}

// CreateFranchise creates a franchise run by the given franchisee.
// POST /admin-dashboard/create-franchise
func (h *Handler) CreateFranchise(w http.ResponseWriter, r *http.Request) {
	form := &view.CreateFranchise{
		Name:       r.PostFormValue("name"),
		AdminEmail: r.PostFormValue("adminEmail"),
	}

	name, err := ValidateEntityName(form.Name)
	if err != nil {
		form.Error = "Franchise " + err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "create_franchise", h.page(r, view.TitleCreateFranchise, form))
		return
	}
	email, err := ValidateEmail(form.AdminEmail)
	if err != nil {
		form.Error = "Franchisee " + err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "create_franchise", h.page(r, view.TitleCreateFranchise, form))
		return
	}

	ctx := r.Context()
	franchise, err := h.pizza.CreateFranchise(ctx, auth.TokenFromContext(ctx), name, email)
	entry := model.AuditEntry{Entity: model.AuditEntityFranchise, Action: model.AuditActionCreate, Name: name}
	if franchise != nil {
		entry.FranchiseID = franchise.ID
	}
	h.recordAudit(r, entry, err)
	if err != nil {
		h.logUpstream(r, "create_franchise", err)
		form.Error = pizza.Message(err, "Unable to create franchise")
		h.render(w, r, upstreamStatus(err), "create_franchise", h.page(r, view.TitleCreateFranchise, form))
		return
	}

	h.metrics.IncFranchiseCreated()
	h.notify(r, adminDashboardPath, "Created franchise "+name)
	redirect(w, r, adminDashboardPath)
}

// findFranchise resolves the {franchiseID} URL parameter against the
// current franchise list.
func (h *Handler) findFranchise(w http.ResponseWriter, r *http.Request) (model.Franchise, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "franchiseID"))
	if err != nil {
		h.NotFound(w, r)
		return model.Franchise{}, false
	}

	state := h.listFranchises(r)
	if state.IsFailed() {
		h.render(w, r, upstreamStatus(state.Err()), "error", h.page(r, view.TitleError, &view.ErrorPage{
			Status:  upstreamStatus(state.Err()),
			Message: pizza.Message(state.Err(), "Unable to load franchises"),
		}))
		return model.Franchise{}, false
	}
	for _, f := range state.Value() {
		if f.ID == id {
			return f, true
		}
	}
	h.NotFound(w, r)
	return model.Franchise{}, false
}

// CloseFranchiseForm asks the admin to confirm closing a franchise.
// GET /admin-dashboard/close-franchise/{franchiseID}
func (h *Handler) CloseFranchiseForm(w http.ResponseWriter, r *http.Request) {
	f, ok := h.findFranchise(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "close_franchise", h.page(r, view.TitleCloseFranchise, &view.CloseFranchise{
		FranchiseID:   f.ID,
		FranchiseName: f.Name,
	}))
}

// CloseFranchise deletes a franchise with all of its stores.
// POST /admin-dashboard/close-franchise/{franchiseID}
func (h *Handler) CloseFranchise(w http.ResponseWriter, r *http.Request) {
	f, ok := h.findFranchise(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.pizza.DeleteFranchise(ctx, auth.TokenFromContext(ctx), f.ID)
	h.recordAudit(r, model.AuditEntry{
		Entity:      model.AuditEntityFranchise,
		Action:      model.AuditActionDelete,
		FranchiseID: f.ID,
		Name:        f.Name,
	}, err)
	if err != nil {
		h.logUpstream(r, "delete_franchise", err)
		h.render(w, r, upstreamStatus(err), "close_franchise", h.page(r, view.TitleCloseFranchise, &view.CloseFranchise{
			FranchiseID:   f.ID,
			FranchiseName: f.Name,
			Error:         pizza.Message(err, "Unable to close "+f.Name),
		}))
		return
	}

	h.metrics.IncFranchiseDeleted()
	h.notify(r, adminDashboardPath, "Closed franchise "+f.Name)
	redirect(w, r, adminDashboardPath)
}

func (h *Handler) adminCloseStore(w http.ResponseWriter, r *http.Request) (*view.CloseStore, bool) {
	f, ok := h.findFranchise(w, r)
	if !ok {
		return nil, false
	}
	sid, err := strconv.Atoi(chi.URLParam(r, "storeID"))
	if err != nil {
		h.NotFound(w, r)
		return nil, false
	}
	store, ok := f.FindStore(sid)
	if !ok {
		h.NotFound(w, r)
		return nil, false
	}
	return &view.CloseStore{
		Back:          adminDashboardPath,
		FranchiseID:   f.ID,
		FranchiseName: f.Name,
		StoreID:       store.ID,
		StoreName:     store.Name,
	}, true
}

// AdminCloseStoreForm asks the admin to confirm closing a store.
// GET /admin-dashboard/close-store/{franchiseID}/{storeID}
func (h *Handler) AdminCloseStoreForm(w http.ResponseWriter, r *http.Request) {
	data, ok := h.adminCloseStore(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "close_store", h.page(r, view.TitleCloseStore, data))
}

// AdminCloseStore deletes any store.
// POST /admin-dashboard/close-store/{franchiseID}/{storeID}
func (h *Handler) AdminCloseStore(w http.ResponseWriter, r *http.Request) {
	data, ok := h.adminCloseStore(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.pizza.DeleteStore(ctx, auth.TokenFromContext(ctx), data.FranchiseID, data.StoreID)
	if pizza.IsNotFound(err) {
		err = nil
	}
	h.recordAudit(r, model.AuditEntry{
		Entity:      model.AuditEntityStore,
		Action:      model.AuditActionDelete,
		FranchiseID: data.FranchiseID,
		StoreID:     data.StoreID,
		Name:        data.StoreName,
	}, err)
	if err != nil {
		h.logUpstream(r, "delete_store", err)
		data.Error = pizza.Message(err, "Unable to close "+data.StoreName)
		h.render(w, r, upstreamStatus(err), "close_store", h.page(r, view.TitleCloseStore, data))
		return
	}

	h.metrics.IncStoreDeleted()
	h.notify(r, adminDashboardPath, "Deleted store "+data.StoreName)
	redirect(w, r, adminDashboardPath)
}

// AddPizzaForm renders the menu item form.
// GET /admin-dashboard/add-pizza
func (h *Handler) AddPizzaForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "add_pizza", h.page(r, view.TitleAddPizza, &view.AddPizza{Image: defaultPizzaImage}))
}

// AddPizza adds a pizza to the menu. The cached menu is dropped so the
// next menu render shows it.
// POST /admin-dashboard/add-pizza
func (h *Handler) AddPizza(w http.ResponseWriter, r *http.Request) {
	form := &view.AddPizza{
		Title:       r.PostFormValue("title"),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Image:       strings.TrimSpace(r.PostFormValue("image")),
		Price:       r.PostFormValue("price"),
	}
	if form.Image == "" {
		form.Image = defaultPizzaImage
	}

	title, err := ValidateEntityName(form.Title)
	if err != nil {
		form.Error = "Pizza " + err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "add_pizza", h.page(r, view.TitleAddPizza, form))
		return
	}
	price, err := ValidatePrice(form.Price)
	if err != nil {
		form.Error = "The " + err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, "add_pizza", h.page(r, view.TitleAddPizza, form))
		return
	}

	ctx := r.Context()
	_, err = h.pizza.AddMenuItem(ctx, auth.TokenFromContext(ctx), model.MenuItem{
		Title:       title,
		Description: form.Description,
		Image:       form.Image,
		Price:       price,
	})
	h.recordAudit(r, model.AuditEntry{Entity: model.AuditEntityMenuItem, Action: model.AuditActionCreate, Name: title}, err)
	if err != nil {
		h.logUpstream(r, "add_menu_item", err)
		form.Error = pizza.Message(err, "Unable to add the pizza")
		h.render(w, r, upstreamStatus(err), "add_pizza", h.page(r, view.TitleAddPizza, form))
		return
	}

	if err := h.cache.InvalidateMenu(ctx); err != nil {
		h.logError(r, "invalidate menu cache failed", err)
	}
	h.notify(r, adminDashboardPath, "Added pizza "+title)
	redirect(w, r, adminDashboardPath)
}

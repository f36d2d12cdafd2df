package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

// Home renders the landing page.
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", h.page(r, view.TitleHome, nil))
}

// About renders the about page.
// GET /about
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "about", h.page(r, view.TitleAbout, nil))
}

// History renders the history page.
// GET /history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "history", h.page(r, view.TitleHistory, nil))
}

// Docs renders the pizza service API documentation.
// GET /docs
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	state := fetch(r.Context(), h.pizza.GetDocs)
	if state.IsFailed() {
		h.logUpstream(r, "get_docs", state.Err())
	}
	h.render(w, r, http.StatusOK, "docs", h.page(r, view.TitleDocs, &view.Docs{Docs: state}))
}

const dinerDashboardPath = "/diner-dashboard"

// DinerDashboard shows the logged-in user and their order history.
// GET /diner-dashboard
func (h *Handler) DinerDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDinerDashboard(w, r, http.StatusOK, "")
}

func (h *Handler) renderDinerDashboard(w http.ResponseWriter, r *http.Request, status int, formErr string) {
	ctx := r.Context()
	user := currentUser(r)
	token := auth.TokenFromContext(ctx)

	orders := fetch(ctx, func(ctx context.Context) (*model.OrderHistory, error) {
		return h.pizza.GetOrders(ctx, token, 1)
	})
	if orders.IsFailed() {
		if h.endExpiredSession(w, r, orders.Err()) {
			return
		}
		h.logUpstream(r, "list_orders", orders.Err())
	}

	h.metrics.IncViewRendered("diner_dashboard", string(view.Decide(user, model.RoleDiner)))
	h.render(w, r, status, "diner_dashboard", h.page(r, view.TitleDinerDashboard, &view.DinerDashboard{
		User:   user,
		Orders: orders,
		Error:  formErr,
	}))
}

// UpdateProfile changes the name, email or password of the session user.
// Empty fields are left as they are.
// POST /diner-dashboard
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	input, err := profileInput(r)
	if err != nil {
		h.renderDinerDashboard(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := h.pizza.UpdateUser(ctx, auth.TokenFromContext(ctx), user.ID, input)
	if err != nil {
		h.logUpstream(r, "update_user", err)
		h.renderDinerDashboard(w, r, upstreamStatus(err), pizza.Message(err, "Unable to update your account"))
		return
	}
	if len(updated.Roles) == 0 {
		updated.Roles = user.Roles
	}

	sess := auth.MustSessionFromContext(ctx)
	sess.User = updated
	if err := h.saveSession(ctx, sess); err != nil {
		h.logError(r, "save session failed", err)
	}
	h.notify(r, dinerDashboardPath, "Your account was updated")
	redirect(w, r, dinerDashboardPath)
}

func profileInput(r *http.Request) (pizza.UpdateUserInput, error) {
	var input pizza.UpdateUserInput
	var err error
	if raw := r.PostFormValue("name"); strings.TrimSpace(raw) != "" {
		if input.Name, err = ValidatePersonName(raw); err != nil {
			return input, err
		}
	}
	if raw := r.PostFormValue("email"); strings.TrimSpace(raw) != "" {
		if input.Email, err = ValidateEmail(raw); err != nil {
			return input, err
		}
	}
	if password := r.PostFormValue("password"); password != "" {
		if err := ValidatePassword(password); err != nil {
			return input, err
		}
		input.Password = password
	}
	return input, nil
}

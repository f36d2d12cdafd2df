package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/jwtpizza/pizzaweb/internal/auth"
	"github.com/jwtpizza/pizzaweb/internal/cache"
	"github.com/jwtpizza/pizzaweb/internal/model"
	"github.com/jwtpizza/pizzaweb/internal/pizza"
	"github.com/jwtpizza/pizzaweb/internal/view"
)

const (
	menuPath     = "/menu"
	paymentPath  = "/payment"
	deliveryPath = "/delivery"
)

// Verification results shown on the delivery page.
const (
	verificationValid      = "valid"
	verificationInvalid    = "invalid"
	verificationUnverified = "unable to verify"
)

// menu returns the menu from Redis, falling back to the pizza service and
// refreshing the cache on a miss.
func (h *Handler) menu(ctx context.Context) ([]model.MenuItem, error) {
	items, err := h.cache.GetMenu(ctx)
	if err == nil {
		h.metrics.IncMenuCacheHit()
		return items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn("menu cache read failed", slog.String("error", err.Error()))
	}
	h.metrics.IncMenuCacheMiss()

	items, err = h.pizza.GetMenu(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.cache.SetMenu(ctx, items, h.menuTTL); err != nil {
		h.logger.Warn("menu cache write failed", slog.String("error", err.Error()))
	}
	return items, nil
}

// loadMenu fetches the menu and the store list concurrently.
func (h *Handler) loadMenu(r *http.Request) *view.Menu {
	ctx := r.Context()
	data := &view.Menu{}
	if sess := auth.SessionFromContext(ctx); sess != nil {
		data.Cart = sess.Cart
	}

	var g errgroup.Group
	g.Go(func() error {
		data.Items = fetch(ctx, h.menu)
		if data.Items.IsFailed() {
			h.logUpstream(r, "get_menu", data.Items.Err())
		}
		return nil
	})
	g.Go(func() error {
		data.Franchises = h.listFranchises(r)
		return nil
	})
	_ = g.Wait()
	return data
}

// Menu renders the pizzas and the store selector.
// GET /menu
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "menu", h.page(r, view.TitleMenu, h.loadMenu(r)))
}

// applyMenuForm copies the store selection and a picked pizza into the cart.
func (h *Handler) applyMenuForm(r *http.Request, sess *model.Session) error {
	if fid, sid, ok := view.ParseStoreKey(r.PostFormValue("store")); ok {
		sess.Cart.FranchiseID = fid
		sess.Cart.StoreID = sid
	}

	raw := r.PostFormValue("item")
	if raw == "" {
		return nil
	}
	itemID, err := strconv.Atoi(raw)
	if err != nil {
		return errUnknownPizza
	}
	items, err := h.menu(r.Context())
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == itemID {
			sess.Cart.Items = append(sess.Cart.Items, it)
			return nil
		}
	}
	return errUnknownPizza
}

var errUnknownPizza = errors.New("unknown pizza")

func (h *Handler) renderMenuError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := h.loadMenu(r)
	data.Error = msg
	h.render(w, r, status, "menu", h.page(r, view.TitleMenu, data))
}

// AddToCart adds the picked pizza to the cart.
// POST /menu
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		h.ErrorPage(w, r, http.StatusServiceUnavailable)
		return
	}

	if err := h.applyMenuForm(r, sess); err != nil {
		if errors.Is(err, errUnknownPizza) {
			h.renderMenuError(w, r, http.StatusUnprocessableEntity, "That pizza is not on the menu")
			return
		}
		h.logUpstream(r, "get_menu", err)
		h.renderMenuError(w, r, upstreamStatus(err), pizza.Message(err, "Unable to load the menu"))
		return
	}
	if err := h.saveSession(r.Context(), sess); err != nil {
		h.logError(r, "save cart failed", err)
		h.renderMenuError(w, r, http.StatusServiceUnavailable, "Your cart could not be saved")
		return
	}
	redirect(w, r, menuPath)
}

// Checkout moves on to payment once pizzas and a store are chosen.
// POST /menu/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		h.ErrorPage(w, r, http.StatusServiceUnavailable)
		return
	}

	if err := h.applyMenuForm(r, sess); err != nil && !errors.Is(err, errUnknownPizza) {
		h.logUpstream(r, "get_menu", err)
	}
	switch {
	case sess.Cart.IsEmpty():
		h.renderMenuError(w, r, http.StatusUnprocessableEntity, "Pick at least one pizza")
		return
	case sess.Cart.StoreID == 0:
		h.renderMenuError(w, r, http.StatusUnprocessableEntity, "Choose a store")
		return
	}
	if err := h.saveSession(r.Context(), sess); err != nil {
		h.logError(r, "save cart failed", err)
		h.renderMenuError(w, r, http.StatusServiceUnavailable, "Your cart could not be saved")
		return
	}
	redirect(w, r, paymentPath)
}

// Payment shows the cart before the order is placed.
// GET /payment
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.Cart.IsEmpty() {
		redirect(w, r, menuPath)
		return
	}
	h.render(w, r, http.StatusOK, "payment", h.page(r, view.TitlePayment, &view.Payment{Cart: sess.Cart}))
}

// Pay places the order and keeps the receipt for the delivery page.
// POST /payment
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := auth.SessionFromContext(ctx)
	if sess == nil || sess.Cart.IsEmpty() {
		redirect(w, r, menuPath)
		return
	}

	receipt, err := h.pizza.CreateOrder(ctx, auth.TokenFromContext(ctx), sess.Cart.ToOrder())
	if err != nil {
		h.logUpstream(r, "create_order", err)
		h.render(w, r, upstreamStatus(err), "payment", h.page(r, view.TitlePayment, &view.Payment{
			Cart:  sess.Cart,
			Error: pizza.Message(err, "Unable to place your order"),
		}))
		return
	}
	h.metrics.IncOrderPlaced()

	sess.Receipt = receipt
	sess.Cart = model.Cart{}
	if err := h.saveSession(ctx, sess); err != nil {
		h.logError(r, "save receipt failed", err)
		h.render(w, r, http.StatusOK, "delivery", h.page(r, view.TitleDelivery, &view.Delivery{Receipt: receipt}))
		return
	}
	redirect(w, r, deliveryPath)
}

// CancelPayment empties the cart.
// POST /payment/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		sess.Cart = model.Cart{}
		if err := h.saveSession(r.Context(), sess); err != nil {
			h.logError(r, "clear cart failed", err)
		}
	}
	redirect(w, r, menuPath)
}

// Delivery shows the last order with its proof-of-purchase JWT.
// GET /delivery
func (h *Handler) Delivery(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil || sess.Receipt == nil {
		redirect(w, r, menuPath)
		return
	}
	h.render(w, r, http.StatusOK, "delivery", h.page(r, view.TitleDelivery, &view.Delivery{Receipt: sess.Receipt}))
}

// VerifyDelivery asks the pizza factory whether the order JWT is
// authentic and shows the answer on the page.
// POST /delivery/verify
func (h *Handler) VerifyDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := auth.SessionFromContext(ctx)
	if sess == nil || sess.Receipt == nil {
		redirect(w, r, menuPath)
		return
	}

	data := &view.Delivery{Receipt: sess.Receipt}
	result, err := h.pizza.VerifyOrder(ctx, auth.TokenFromContext(ctx), sess.Receipt.JWT)
	var apiErr *pizza.APIError
	switch {
	case err == nil && result.Valid():
		data.Verification = verificationValid
		data.Payload = prettyPayload(result.Payload)
	case err == nil, errors.As(err, &apiErr):
		data.Verification = verificationInvalid
		data.Payload = pizza.Message(err, "")
	default:
		h.logUpstream(r, "verify_order", err)
		data.Verification = verificationUnverified
	}
	h.render(w, r, http.StatusOK, "delivery", h.page(r, view.TitleDelivery, data))
}

func prettyPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

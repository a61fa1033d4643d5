package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	levelSuccess = "success"
	levelInfo    = "info"
	levelWarning = "warning"
	levelError   = "error"
)

type CartHandler struct {
	Store    *cart.Store
	Shipping decimal.Decimal
	Log      *zap.Logger
}

// Register mounts the cart routes. They expect RequireUser upstream.
func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.show)
	r.Delete("/cart", h.clear)
	r.Post("/cart/products/{productID}", h.add)
	r.Post("/cart/lines/{id}/increase", h.increase)
	r.Post("/cart/lines/{id}/decrease", h.decrease)
	r.Delete("/cart/lines/{id}", h.remove)
	r.Get("/checkout", h.checkout)
}

func (h *CartHandler) show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sum, err := h.Store.Summary(ctx, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(sum))
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, created, err := h.Store.AddOrIncrement(ctx, CurrentUser(ctx).ID, productID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if created {
		h.flash(ctx, w, levelSuccess, fmt.Sprintf("Added %s to your cart.", line.ProductName()))
		return
	}
	// re-adding a product already in the cart is informational
	h.flash(ctx, w, levelInfo, fmt.Sprintf("Increased quantity for %s.", line.ProductName()))
}

func (h *CartHandler) increase(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, err := h.Store.Increment(ctx, lineID, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.flash(ctx, w, levelSuccess, fmt.Sprintf("Increased quantity for %s.", line.ProductName()))
}

func (h *CartHandler) decrease(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, err := h.Store.Decrement(ctx, lineID, CurrentUser(ctx).ID)
	switch {
	case errors.Is(err, cart.ErrQuantityFloor):
		h.flash(ctx, w, levelWarning, fmt.Sprintf("Cannot decrease quantity for %s below 1.", line.ProductName()))
	case err != nil:
		writeError(w, h.Log, err)
	default:
		h.flash(ctx, w, levelSuccess, fmt.Sprintf("Decreased quantity for %s.", line.ProductName()))
	}
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, err := h.Store.Remove(ctx, lineID, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.flash(ctx, w, levelSuccess, fmt.Sprintf("Removed %s from your cart.", line.ProductName()))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	had, err := h.Store.Clear(ctx, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if had {
		h.flash(ctx, w, levelSuccess, "Cart cleared successfully.")
		return
	}
	h.flash(ctx, w, levelError, "No items found in the cart.")
}

func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rev, err := h.Store.Checkout(ctx, CurrentUser(ctx).ID, h.Shipping)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutView{
		Lines:    toLineViews(rev.Lines),
		Count:    rev.Count,
		Subtotal: money(rev.Subtotal),
		Shipping: money(rev.Shipping),
		Total:    money(rev.Total),
	})
}

// flash answers a cart mutation with a message and the refreshed cart.
func (h *CartHandler) flash(ctx context.Context, w http.ResponseWriter, level, msg string) {
	sum, err := h.Store.Summary(ctx, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, flashResponse{Level: level, Message: msg, Cart: toCartView(sum)})
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Service *orders.Service
	Repo    *orders.Repo
	Redis   redis.Cmdable
	Log     *zap.Logger
}

type placeOrderReq struct {
	PaymentMethod string `json:"payment_method"`
}

type placeOrderResp struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Idempotent bool      `json:"idempotent"`
	Order      orderView `json:"order"`
}

// Register mounts the order routes. They expect RequireUser upstream.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	method, err := paymentMethodFrom(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	userID := CurrentUser(ctx).ID

	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		h.placeIdempotent(ctx, w, userID, k, method)
		return
	}
	h.place(ctx, w, userID, method, "")
}

// placeIdempotent places at most one order per Idempotency-Key. The first
// request holds a pending marker while it places; concurrent requests with
// the same key wait for its result and replay it.
func (h *OrdersHandler) placeIdempotent(ctx context.Context, w http.ResponseWriter, userID int64, k, method string) {
	idemKey := redisx.IdemOrderPlaceKey(userID, k)
	pendingKey := redisx.IdemOrderPendingKey(userID, k)
	log := h.Log.With(zap.String("key", idemKey))

	for {
		done, err := h.replay(ctx, w, idemKey, userID)
		if done {
			return
		}
		if err != nil {
			// redis unavailable: place without the guarantee
			log.Warn("idempotency lookup", zap.Error(err))
			h.place(ctx, w, userID, method, "")
			return
		}

		claimed, err := redisx.Claim(ctx, h.Redis, pendingKey, redisx.TTLIdemPending)
		if err != nil {
			log.Warn("claim idempotency key", zap.Error(err))
			h.place(ctx, w, userID, method, "")
			return
		}
		if claimed {
			// the previous holder may have finished between lookup and claim
			if done, _ = h.replay(ctx, w, idemKey, userID); !done {
				h.place(ctx, w, userID, method, idemKey)
			}
			if err := redisx.Release(context.WithoutCancel(ctx), h.Redis, pendingKey); err != nil {
				log.Warn("release idempotency key", zap.Error(err))
			}
			return
		}

		// another request holds the key; wait until it finishes
		for {
			select {
			case <-ctx.Done():
				writeError(w, h.Log, ctx.Err())
				return
			case <-time.After(idemPollInterval):
			}
			held, err := redisx.Exists(ctx, h.Redis, pendingKey)
			if err != nil || !held {
				break
			}
		}
	}
}

const idemPollInterval = 50 * time.Millisecond

// replay writes the order stored under idemKey. done is false when there is
// nothing to replay.
func (h *OrdersHandler) replay(ctx context.Context, w http.ResponseWriter, idemKey string, userID int64) (done bool, err error) {
	var orderID int64
	found, err := redisx.GetJSON(ctx, h.Redis, idemKey, &orderID)
	if err != nil || !found {
		return false, err
	}
	o, err := h.Repo.Get(ctx, orderID, userID)
	if errors.Is(err, orders.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		writeError(w, h.Log, err)
		return true, nil
	}
	writeJSON(w, http.StatusOK, placeOrderResp{
		Success:    true,
		Message:    fmt.Sprintf("Order #%s placed successfully!", o.OrderNumber),
		Idempotent: true,
		Order:      toOrderView(o),
	})
	return true, nil
}

// place runs the assembler and, when idemKey is set, records the order id
// under it before responding.
func (h *OrdersHandler) place(ctx context.Context, w http.ResponseWriter, userID int64, method, idemKey string) {
	o, err := h.Service.PlaceOrder(ctx, userID, method)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	if idemKey != "" {
		if err := redisx.SetJSON(ctx, h.Redis, idemKey, o.ID, redisx.TTLIdempotency); err != nil {
			h.Log.Warn("store idempotency key", zap.String("key", idemKey), zap.Error(err))
		}
	}
	view := toOrderView(*o)
	h.cache(ctx, view)

	writeJSON(w, http.StatusCreated, placeOrderResp{
		Success: true,
		Message: fmt.Sprintf("Order #%s placed successfully!", o.OrderNumber),
		Order:   view,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.ListByCustomer(ctx, CurrentUser(ctx).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	userID := CurrentUser(ctx).ID

	// 1) cache
	var cached orderView
	if found, err := redisx.GetJSON(ctx, h.Redis, redisx.OrderKey(id), &cached); err == nil && found &&
		cached.CustomerID != nil && *cached.CustomerID == userID {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	// 2) database
	o, err := h.Repo.Get(ctx, id, userID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	view := toOrderView(o)
	h.cache(ctx, view)
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) cache(ctx context.Context, v orderView) {
	if err := redisx.SetJSON(ctx, h.Redis, redisx.OrderKey(v.ID), v, redisx.TTLOrderCache); err != nil {
		h.Log.Warn("cache order", zap.Int64("order_id", v.ID), zap.Error(err))
	}
}

func paymentMethodFrom(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req placeOrderReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", ErrInvalidRequest
		}
		return req.PaymentMethod, nil
	}
	return r.FormValue("payment_method"), nil
}

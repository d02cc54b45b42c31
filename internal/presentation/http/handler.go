package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	headerWebhookSig     = "X-Razorpay-Signature"

	maxBodyBytes = 1 << 20
)

// Deps are the collaborators the HTTP surface dispatches to. Realtime, Metrics and
// Health are optional.
type Deps struct {
	PlaceOrder *apporder.PlaceOrderUseCase
	Orders     *apporder.QueryUseCases
	Carts      *appcart.UseCases
	Payments   *apppayment.UseCases
	Variants   *inventory.VariantUseCases
	Auth       Authenticator
	Realtime   http.Handler
	Metrics    http.Handler
	Health     func(ctx context.Context) error
}

type Handler struct {
	deps Deps
	log  observability.Logger
	tel  observability.Observability
}

func NewHandler(deps Deps, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		deps: deps,
		log:  tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:  tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → ObservabilityMiddleware (request logger) → Access log → HTTP metrics → Identity → Handler
	h.muxHandle(mux, http.MethodPost, "/orders", optional, h.handlePlaceOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/track", public, h.handleTrackOrder)
	h.muxHandle(mux, http.MethodGet, "/orders", signedIn, h.handleListMyOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/admin/all", signedIn, h.handleListAllOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", signedIn, h.handleGetOrder)
	h.muxHandle(mux, http.MethodPut, "/orders/{id}/status", signedIn, h.handleUpdateOrderStatus)

	h.muxHandle(mux, http.MethodGet, "/cart", signedIn, h.handleGetCart)
	h.muxHandle(mux, http.MethodPost, "/cart", signedIn, h.handleAddCartItem)
	h.muxHandle(mux, http.MethodPut, "/cart", signedIn, h.handleUpdateCartItem)
	h.muxHandle(mux, http.MethodDelete, "/cart/{variantId}", signedIn, h.handleRemoveCartItem)

	h.muxHandle(mux, http.MethodPost, "/payments/razorpay/order", optional, h.handleCreatePaymentIntent)
	h.muxHandle(mux, http.MethodPost, "/payments/razorpay/verify", optional, h.handleVerifyPayment)
	h.muxHandle(mux, http.MethodPost, "/payments/razorpay/failed", signedIn, h.handlePaymentFailed)
	h.muxHandle(mux, http.MethodPost, "/payments/razorpay/refund", signedIn, h.handleRefund)
	h.muxHandle(mux, http.MethodPost, "/payments/razorpay/webhook", public, h.handleWebhook)

	h.muxHandle(mux, http.MethodPost, "/variants", signedIn, h.handleCreateVariant)
	h.muxHandle(mux, http.MethodPut, "/variants/{id}", signedIn, h.handleUpdateVariant)
	h.muxHandle(mux, http.MethodDelete, "/variants/{id}", signedIn, h.handleDeleteVariant)
	h.muxHandle(mux, http.MethodGet, "/products/{id}/variants", public, h.handleListVariants)

	h.muxHandle(mux, http.MethodGet, "/health", public, h.handleHealth)
	if h.deps.Realtime != nil {
		h.muxHandle(mux, http.MethodGet, "/ws", public, h.deps.Realtime.ServeHTTP)
	}
	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics)
	}

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, access accessLevel, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			func(r *http.Request) string {
				return r.Header.Get(headerTenantID)
			},
			h.tel,
		)(
			h.withAccessLog(
				h.withHTTPMetrics(
					h.withIdentity(access, handler),
				),
			),
		),
	)
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		r = r.WithContext(contextWithRoute(r.Context(), route))
		wrapped.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var errEmptyBody = errors.New("request body is required")

// decodeJSON reads a single JSON document into dst, rejecting unknown fields, then runs
// the struct validation rules.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest(errEmptyBody)
		}
		return badRequest(fmt.Errorf("malformed json: %w", err))
	}
	return validateStruct(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

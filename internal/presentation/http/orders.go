package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	in := apporder.PlaceOrderInput{
		Buyer:         auth.FromContext(r.Context()),
		Items:         make([]apporder.LineInput, 0, len(req.Items)),
		Address:       req.Address.toDomain(),
		ShippingFee:   req.ShippingFee,
		Tax:           req.Tax,
		PaymentMethod: req.PaymentMethod,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, apporder.LineInput{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	if in.Buyer == nil {
		in.Guest = &domorder.GuestContact{Email: req.GuestEmail, Name: req.GuestName, Phone: req.GuestPhone}
	}

	res, err := h.deps.PlaceOrder.Execute(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placeOrderResponse{
		Order:   orderFrom(res.Order),
		Payment: paymentFrom(res.Payment),
	})
}

func (h *Handler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	var req trackOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	view, err := h.deps.Orders.TrackGuestOrder(r.Context(), apporder.TrackInput{OrderID: req.OrderID, Email: req.Email})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViewFrom(*view))
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.deps.Orders.ListMine(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViewsFrom(views))
}

func (h *Handler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.deps.Orders.ListAdmin(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViewsFrom(views))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Orders.Get(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViewFrom(*view))
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	o, err := h.deps.Orders.UpdateStatus(r.Context(), apporder.UpdateStatusInput{
		Actor:   auth.FromContext(r.Context()),
		OrderID: r.PathValue("id"),
		Status:  req.Status,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderFrom(o))
}

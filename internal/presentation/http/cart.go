package httppresentation

import (
	"net/http"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
)

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Carts.Get(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartFrom(c))
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.deps.Carts.AddItem(r.Context(), appcart.AddItemInput{
		Actor:     auth.FromContext(r.Context()),
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartFrom(c))
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	c, err := h.deps.Carts.UpdateItem(r.Context(), appcart.UpdateItemInput{
		Actor:     auth.FromContext(r.Context()),
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartFrom(c))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Carts.RemoveItem(r.Context(), auth.FromContext(r.Context()), r.PathValue("variantId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartFrom(c))
}

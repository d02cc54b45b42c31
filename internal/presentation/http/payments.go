package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
)

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.deps.Payments.CreateIntent(r.Context(), auth.FromContext(r.Context()), req.OrderID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intentFrom(res))
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	o, err := h.deps.Payments.Verify(r.Context(), apppayment.VerifyInput{
		Actor:            auth.FromContext(r.Context()),
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderFrom(o))
}

func (h *Handler) handlePaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req paymentFailedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	var raw json.RawMessage
	if req.Error != nil {
		raw, _ = json.Marshal(req.Error)
	}
	o, err := h.deps.Payments.MarkFailed(r.Context(), apppayment.FailInput{
		Actor:            auth.FromContext(r.Context()),
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Raw:              raw,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderFrom(o))
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	o, err := h.deps.Payments.Refund(r.Context(), apppayment.RefundInput{
		Actor:   auth.FromContext(r.Context()),
		OrderID: req.OrderID,
		Amount:  req.Amount,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderFrom(o))
}

// handleWebhook needs the exact request bytes for signature verification, so the body is
// read raw rather than decoded.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeAppError(w, r, badRequest(err))
		return
	}
	if len(body) == 0 {
		writeAppError(w, r, badRequest(errEmptyBody))
		return
	}
	res, err := h.deps.Payments.HandleWebhook(r.Context(), body, r.Header.Get(headerWebhookSig))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if res == nil {
		writeAppError(w, r, errors.New("webhook produced no result"))
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Event: res.Event, Handled: res.Handled})
}

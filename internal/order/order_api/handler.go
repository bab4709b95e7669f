package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-checkout/internal/auth"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/order"
	"ms-checkout/internal/pricing"
)

const maxWebhookBodyBytes = 64 * 1024

type Handler struct {
	CheckoutService *order.CheckoutService
	Logger          *logger.Logger
}

func NewHandler(checkoutService *order.CheckoutService, log *logger.Logger) *Handler {
	return &Handler{
		CheckoutService: checkoutService,
		Logger:          log,
	}
}

// CreateCheckoutSession handles POST /checkout/sessions.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCheckoutSession: failed to decode request body: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.CheckoutService.Checkout(r.Context(), userID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCheckoutSession: checkout failed: %v", err))
		h.writeCheckoutError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateCheckoutSession: order %s, session %s", resp.OrderID, resp.SessionID))
	h.writeJSON(w, http.StatusOK, resp)
}

// SyncOrder handles POST /checkout/sync/{orderId}.
func (h *Handler) SyncOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	orderID := chi.URLParam(r, "orderId")
	resp, err := h.CheckoutService.SyncOrder(r.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, order.ErrAccessDenied):
			h.writeError(w, http.StatusForbidden, "Access denied")
		default:
			h.Logger.Error("API", fmt.Sprintf("SyncOrder: sync failed for %s: %v", orderID, err))
			h.writeError(w, http.StatusInternalServerError, "Failed to sync order")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /checkout/orders/{orderId}. Read-only; consumed by
// the receipt and order-success pages.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	orderID := chi.URLParam(r, "orderId")
	ord, err := h.CheckoutService.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, order.ErrAccessDenied):
			h.writeError(w, http.StatusForbidden, "Access denied")
		default:
			h.Logger.Error("API", fmt.Sprintf("GetOrder: failed to load %s: %v", orderID, err))
			h.writeError(w, http.StatusInternalServerError, "Failed to load order")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, ord)
}

// ProviderWebhook handles POST /webhooks/provider. Unauthenticated; the
// signature header is the authentication.
func (h *Handler) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ProviderWebhook: failed to read payload: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	err = h.CheckoutService.HandleProviderWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var webhookErr *order.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Error("API", fmt.Sprintf("ProviderWebhook: %s error: %s", webhookErr.Category, webhookErr.InternalError))
			h.writeError(w, webhookErr.StatusCode, webhookErr.PublicError)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("ProviderWebhook: processing failed: %v", err))
		h.writeError(w, http.StatusInternalServerError, "Webhook processing error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrTicketNotFound):
		h.writeError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, order.ErrSoldOut):
		h.writeError(w, http.StatusUnprocessableEntity, "Ticket is no longer available")
	case errors.Is(err, order.ErrPerOrderLimitExceeded):
		h.writeError(w, http.StatusUnprocessableEntity, "Quantity exceeds the per-order limit")
	case errors.Is(err, order.ErrSaleNotActive):
		h.writeError(w, http.StatusUnprocessableEntity, "Ticket sales are not active")
	case errors.Is(err, pricing.ErrBelowMinimumPrice):
		h.writeError(w, http.StatusUnprocessableEntity, "Custom price is below the ticket minimum")
	case errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrNegativeTip),
		errors.Is(err, pricing.ErrCustomPriceNotAllowed),
		errors.Is(err, pricing.ErrCustomPriceRequired),
		errors.Is(err, pricing.ErrTipNotAllowed):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrPaymentInit):
		h.writeError(w, http.StatusBadGateway, "Could not start payment")
	default:
		h.writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

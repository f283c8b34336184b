package handler

import (
	"io"
	"net/http"

	"maharaja/internal/payments/service"
	apperrors "maharaja/pkg/errors"
	httputil "maharaja/pkg/http"
	"maharaja/pkg/logger"
	"maharaja/pkg/middleware"
	"maharaja/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Gateways that send a delivery id put it in one of these headers.
var eventIDHeaders = []string{"X-Razorpay-Event-Id", "X-Webhook-Event-Id"}

type PaymentHandler struct {
	service         service.SettlementService
	signatureHeader string
	log             *logger.Logger
}

func NewPaymentHandler(service service.SettlementService, signatureHeader string, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:         service,
		signatureHeader: signatureHeader,
		log:             log,
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.OrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), middleware.RequesterFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	if err := httputil.WriteCreated(w, order); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateOrder", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CallbackRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	result, err := h.service.VerifyClientCallback(r.Context(), middleware.RequesterFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RefundRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	result, err := h.service.Refund(r.Context(), middleware.RequesterFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "operation", "WriteSuccess", "error", err)
	}
}

// Webhook hands the raw body to the service, which owns signature checks.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Webhook", apperrors.InvalidInput("Failed to read webhook body"))
		return
	}
	if len(body) == 0 {
		h.writeError(w, "Webhook", apperrors.InvalidInput("Webhook body cannot be empty"))
		return
	}

	var eventID string
	for _, header := range eventIDHeaders {
		if eventID = r.Header.Get(header); eventID != "" {
			break
		}
	}

	result, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(h.signatureHeader), eventID)
	if err != nil {
		h.writeError(w, "Webhook", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/orders", h.CreateOrder)
	router.POST("/api/v1/payments/verify", h.Verify)
	router.POST("/api/v1/payments/refunds", h.Refund)
}

func (h *PaymentHandler) RegisterWebhookRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/webhook", h.Webhook)
}

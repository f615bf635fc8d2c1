package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/config"
	"biztech/api/internal/payment"
)

// PaymentHandler handles the standalone payment endpoint. Premium listing
// creation charges through the listing service directly; this endpoint exists
// for clients that capture the fee before submitting the listing form.
type PaymentHandler struct {
	cfg       *config.Config
	processor payment.IProcessor
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(cfg *config.Config, processor payment.IProcessor) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, processor: processor}
}

type subscribeRequest struct {
	ListingTitle string  `json:"listingTitle" binding:"required"`
	Amount       float64 `json:"amount" binding:"required"`
}

// Subscribe handles POST /payments/subscribe.
func (h *PaymentHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	if req.Amount != h.cfg.PremiumListingFee {
		respondError(c, apperr.Newf(apperr.KindValidation, "The premium listing fee is %.2f %s", h.cfg.PremiumListingFee, h.cfg.FeeCurrencyCode))
		return
	}

	actor := middleware.ActorFrom(c)
	captured, err := h.processor.Charge(c.Request.Context(), actor.ID, req.Amount, h.cfg.FeeCurrencyCode, "Premium listing fee: "+req.ListingTitle)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"paymentId": captured.ID,
		"reference": captured.Reference,
		"status":    captured.Status,
	})
}

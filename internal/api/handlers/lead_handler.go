package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/services"
	"biztech/api/internal/tasks"
	"biztech/api/internal/utils"
)

// LeadHandler handles buyer enquiry endpoints.
type LeadHandler struct {
	leadService    services.ILeadService
	listingService services.IListingService
	accountService services.IAccountService
	taskClient     *asynq.Client
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(leadService services.ILeadService, listingService services.IListingService, accountService services.IAccountService, taskClient *asynq.Client) *LeadHandler {
	return &LeadHandler{
		leadService:    leadService,
		listingService: listingService,
		accountService: accountService,
		taskClient:     taskClient,
	}
}

type createLeadRequest struct {
	ListingID string `json:"listingId" binding:"required"`
	Message   string `json:"message"`
}

// Create handles POST /leads.
func (h *LeadHandler) Create(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	listingID, err := utils.ParseSixID(req.ListingID)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid listing ID"))
		return
	}

	lead, err := h.leadService.Create(c.Request.Context(), middleware.ActorFrom(c), listingID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifySeller(c.Request.Context(), listingID)
	respondOK(c, http.StatusCreated, lead)
}

// ListMine handles GET /buyer/leads.
func (h *LeadHandler) ListMine(c *gin.Context) {
	leads, err := h.leadService.ListByBuyer(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, leads)
}

// notifySeller queues the "new enquiry" email to the listing owner.
// Best-effort: the lead has already been recorded.
func (h *LeadHandler) notifySeller(ctx context.Context, listingID utils.SixID) {
	if h.taskClient == nil {
		return
	}
	listing, err := h.listingService.FindByID(ctx, listingID)
	if err != nil {
		log.Printf("WARN: lead notification: could not load listing %s: %v", listingID.String(), err)
		return
	}
	seller, err := h.accountService.FindByID(ctx, listing.SellerID)
	if err != nil {
		log.Printf("WARN: lead notification: could not load seller of listing %s: %v", listingID.String(), err)
		return
	}
	err = tasks.EnqueueEmail(ctx, h.taskClient, tasks.EmailTaskPayload{
		To:         seller.Email,
		TemplateID: tasks.TemplateLeadReceived,
		Data: map[string]string{
			"name":          seller.Name,
			"listing_title": listing.Title,
		},
	})
	if err != nil {
		log.Printf("WARN: failed to enqueue lead notification for listing %s: %v", listingID.String(), err)
	}
}

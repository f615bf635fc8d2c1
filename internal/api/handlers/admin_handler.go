package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/tasks"
	"biztech/api/internal/utils"
)

// AdminHandler handles the admin review endpoints.
type AdminHandler struct {
	accountService   services.IAccountService
	listingService   services.IListingService
	valuationService services.IValuationService
	taskClient       *asynq.Client
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountService services.IAccountService, listingService services.IListingService, valuationService services.IValuationService, taskClient *asynq.Client) *AdminHandler {
	return &AdminHandler{
		accountService:   accountService,
		listingService:   listingService,
		valuationService: valuationService,
		taskClient:       taskClient,
	}
}

// ListUsers handles GET /admin/users?role=&status=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var role *models.Role
	if v := c.Query("role"); v != "" {
		r := models.Role(v)
		if !models.ValidRole(r) {
			respondError(c, apperr.Newf(apperr.KindValidation, "Unknown role %q", v))
			return
		}
		role = &r
	}
	var status *models.AccountStatus
	if v := c.Query("status"); v != "" {
		s := models.AccountStatus(v)
		status = &s
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), middleware.ActorFrom(c), role, status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, accounts)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetUserStatus handles PUT /admin/users/:id/status.
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	account, err := h.accountService.SetAccountStatus(c.Request.Context(), middleware.ActorFrom(c), accountID, models.AccountStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	template := tasks.TemplateAccountApproved
	if account.AccountStatus == models.AccountRejected {
		template = tasks.TemplateAccountRejected
	}
	h.enqueueEmail(c.Request.Context(), account.Email, template, map[string]string{"name": account.Name})

	respondOK(c, http.StatusOK, account)
}

// ListPendingListings handles GET /admin/pending-listings.
func (h *AdminHandler) ListPendingListings(c *gin.Context) {
	listings, err := h.listingService.ListPending(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, listings)
}

type assignAgentRequest struct {
	ListingID string `json:"listingId" binding:"required"`
	AgentID   string `json:"agentId" binding:"required"`
}

// AssignAgent handles POST /admin/assign-agent.
func (h *AdminHandler) AssignAgent(c *gin.Context) {
	var req assignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	listingID, err := utils.ParseSixID(req.ListingID)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid listing ID"))
		return
	}
	agentID, err := utils.ParseSixID(req.AgentID)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid agent ID"))
		return
	}

	listing, err := h.listingService.AssignAgent(c.Request.Context(), middleware.ActorFrom(c), listingID, agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifySeller(c.Request.Context(), listing, tasks.TemplateListingApproved)
	respondOK(c, http.StatusOK, listing)
}

type rejectListingRequest struct {
	ListingID string `json:"listingId" binding:"required"`
}

// RejectListing handles POST /admin/reject-listing.
func (h *AdminHandler) RejectListing(c *gin.Context) {
	var req rejectListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	listingID, err := utils.ParseSixID(req.ListingID)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid listing ID"))
		return
	}

	listing, err := h.listingService.Reject(c.Request.Context(), middleware.ActorFrom(c), listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifySeller(c.Request.Context(), listing, tasks.TemplateListingRejected)
	respondOK(c, http.StatusOK, listing)
}

type createAgentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required"`
}

// CreateAgent handles POST /admin/create-agent.
func (h *AdminHandler) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	agent, err := h.accountService.CreateAgent(c.Request.Context(), middleware.ActorFrom(c), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, agent)
}

// ListValuations handles GET /admin/valuations.
func (h *AdminHandler) ListValuations(c *gin.Context) {
	requests, err := h.valuationService.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, requests)
}

func (h *AdminHandler) notifySeller(ctx context.Context, listing *models.Listing, template string) {
	seller, err := h.accountService.FindByID(ctx, listing.SellerID)
	if err != nil {
		log.Printf("WARN: could not load seller of listing %s for notification: %v", listing.ID.String(), err)
		return
	}
	h.enqueueEmail(ctx, seller.Email, template, map[string]string{
		"name":          seller.Name,
		"listing_title": listing.Title,
	})
}

func (h *AdminHandler) enqueueEmail(ctx context.Context, to, template string, data map[string]string) {
	if h.taskClient == nil {
		return
	}
	err := tasks.EnqueueEmail(ctx, h.taskClient, tasks.EmailTaskPayload{To: to, TemplateID: template, Data: data})
	if err != nil {
		log.Printf("WARN: failed to enqueue %s email to %s: %v", template, to, err)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/storage"
)

// AgentHandler handles the agent dashboard endpoints.
type AgentHandler struct {
	listingService services.IListingService
	leadService    services.ILeadService
	storage        storage.IDeliverableStorage
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(listingService services.IListingService, leadService services.ILeadService, storage storage.IDeliverableStorage) *AgentHandler {
	return &AgentHandler{
		listingService: listingService,
		leadService:    leadService,
		storage:        storage,
	}
}

// ListListings handles GET /agent/listings.
func (h *AgentHandler) ListListings(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	listings, err := h.listingService.ListByAgent(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, listings)
}

// ListLeads handles GET /agent/leads.
func (h *AgentHandler) ListLeads(c *gin.Context) {
	leads, err := h.leadService.ListByAgent(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, leads)
}

type updateLeadRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateLead handles PUT /agent/leads/:id.
func (h *AgentHandler) UpdateLead(c *gin.Context) {
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	lead, err := h.leadService.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), leadID, models.LeadStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, lead)
}

type toggleDeliverableRequest struct {
	Flag  string `json:"flag" binding:"required"`
	Ready *bool  `json:"ready" binding:"required"`
}

// ToggleDeliverable handles POST /agent/listings/:id/deliverables.
func (h *AgentHandler) ToggleDeliverable(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req toggleDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	listing, err := h.listingService.ToggleDeliverable(c.Request.Context(), middleware.ActorFrom(c), listingID, models.DeliverableFlag(req.Flag), *req.Ready)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, listing.Deliverables)
}

type uploadURLRequest struct {
	Flag        string `json:"flag" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

// DeliverableUploadURL handles POST /agent/listings/:id/deliverables/upload-url.
// The storage key is recorded against the deliverable slot so the document
// can be fetched later; the client PUTs the file to the pre-signed URL.
func (h *AgentHandler) DeliverableUploadURL(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	actor := middleware.ActorFrom(c)
	flag := models.DeliverableFlag(req.Flag)

	// No pre-signed URL is minted for a caller the attach would refuse.
	if err := h.listingService.AuthorizeDeliverableUpload(c.Request.Context(), actor, listingID, flag); err != nil {
		respondError(c, err)
		return
	}

	url, key, err := h.storage.GenerateUploadURL(c.Request.Context(), listingID.String(), req.Flag, req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.listingService.AttachDeliverableDocument(c.Request.Context(), actor, listingID, flag, key); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"uploadUrl": url, "key": key})
}

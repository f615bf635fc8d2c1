package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"biztech/api/internal/apperr"
	"biztech/api/internal/services"
	"biztech/api/internal/tasks"
)

// ValuationHandler handles the public valuation enquiry endpoint.
type ValuationHandler struct {
	valuationService services.IValuationService
	taskClient       *asynq.Client
}

// NewValuationHandler creates a new ValuationHandler.
func NewValuationHandler(valuationService services.IValuationService, taskClient *asynq.Client) *ValuationHandler {
	return &ValuationHandler{valuationService: valuationService, taskClient: taskClient}
}

type valuationRequest struct {
	Name         string  `json:"name" binding:"required"`
	Email        string  `json:"email" binding:"required"`
	Mobile       string  `json:"mobile"`
	BusinessName string  `json:"businessName" binding:"required"`
	Industry     string  `json:"industry"`
	Turnover     float64 `json:"turnover"`
	Message      string  `json:"message"`
}

// Create handles POST /valuation.
func (h *ValuationHandler) Create(c *gin.Context) {
	var req valuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	request, err := h.valuationService.Create(c.Request.Context(), services.ValuationInput{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		BusinessName: req.BusinessName,
		Industry:     req.Industry,
		Turnover:     req.Turnover,
		Message:      req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Acknowledge by email; the request is already stored.
	if h.taskClient != nil {
		err := tasks.EnqueueEmail(c.Request.Context(), h.taskClient, tasks.EmailTaskPayload{
			To:         request.Email,
			TemplateID: tasks.TemplateValuationAck,
			Data: map[string]string{
				"name":          request.Name,
				"business_name": request.BusinessName,
			},
		})
		if err != nil {
			log.Printf("WARN: failed to enqueue valuation acknowledgement to %s: %v", request.Email, err)
		}
	}

	respondOK(c, http.StatusCreated, gin.H{"id": request.ID})
}

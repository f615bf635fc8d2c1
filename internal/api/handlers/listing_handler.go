package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
)

// ListingHandler handles the public and seller-facing listing endpoints.
type ListingHandler struct {
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

// List handles GET /listings.
func (h *ListingHandler) List(c *gin.Context) {
	filter := services.ListingFilter{
		Industry: c.Query("industry"),
		Region:   c.Query("region"),
	}
	if v := c.Query("minPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &price
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &price
		}
	}
	if v := c.Query("tier"); v == string(models.TierBasic) || v == string(models.TierPremium) {
		t := models.Tier(v)
		filter.Tier = &t
	}

	views, err := h.listingService.ListActive(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, views)
}

// GetByID handles GET /listings/:id.
func (h *ListingHandler) GetByID(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.listingService.ViewByID(c.Request.Context(), middleware.ActorFrom(c), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, view)
}

type listingRequest struct {
	Title       string  `json:"title" binding:"required"`
	Industry    string  `json:"industry" binding:"required"`
	Region      string  `json:"region" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	Turnover    float64 `json:"turnover"`
	NetProfit   float64 `json:"netProfit"`
	Description string  `json:"description"`

	LegalBusinessName string `json:"legalBusinessName"`
	OwnerName         string `json:"ownerName"`
	FullAddress       string `json:"fullAddress"`
}

func (r listingRequest) toInput() services.ListingInput {
	input := services.ListingInput{
		Title:       r.Title,
		Industry:    r.Industry,
		Region:      r.Region,
		Price:       r.Price,
		Turnover:    r.Turnover,
		NetProfit:   r.NetProfit,
		Description: r.Description,
	}
	if r.LegalBusinessName != "" || r.OwnerName != "" || r.FullAddress != "" {
		input.Private = &models.PrivateData{
			LegalBusinessName: r.LegalBusinessName,
			OwnerName:         r.OwnerName,
			FullAddress:       r.FullAddress,
		}
	}
	return input
}

// Create handles POST /listings.
func (h *ListingHandler) Create(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	listing, err := h.listingService.Create(c.Request.Context(), middleware.ActorFrom(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, listing)
}

// Update handles PUT /listings/:id.
func (h *ListingHandler) Update(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	listing, err := h.listingService.Update(c.Request.Context(), middleware.ActorFrom(c), listingID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, listing)
}

// Delete handles DELETE /listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.listingService.Delete(c.Request.Context(), middleware.ActorFrom(c), listingID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Listing removed"})
}

// ListMine handles GET /seller/listings.
func (h *ListingHandler) ListMine(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	listings, err := h.listingService.ListBySeller(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, listings)
}

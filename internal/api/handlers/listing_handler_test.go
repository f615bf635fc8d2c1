package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"biztech/api/internal/api/middleware"
	"biztech/api/internal/apperr"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/utils"
)

// withActor injects an authenticated account the way the auth middleware does.
func withActor(actor *models.Account) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			c.Set(middleware.ContextKeyActor, actor)
		}
		c.Next()
	}
}

func newListingRouter(listings *mockListingService, actor *models.Account) *gin.Engine {
	h := NewListingHandler(listings)
	r := gin.New()
	r.Use(withActor(actor))
	r.GET("/listings", h.List)
	r.GET("/listings/:id", h.GetByID)
	r.POST("/listings", h.Create)
	r.PUT("/listings/:id", h.Update)
	r.DELETE("/listings/:id", h.Delete)
	return r
}

func TestListingDetailPublicProjection(t *testing.T) {
	listings := &mockListingService{}
	listingID := utils.NewSixID()
	view := &models.ListingView{ID: listingID, Title: "Cafe", Tier: models.TierPremium, Status: models.ListingActive}
	listings.On("ViewByID", mock.Anything, (*models.Account)(nil), listingID).Return(view, nil)

	r := newListingRouter(listings, nil)
	w, envelope := doJSON(t, r, http.MethodGet, "/listings/"+listingID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "Cafe", data["title"])
	_, hasPrivate := data["privateData"]
	assert.False(t, hasPrivate, "no private block in the public projection")
}

func TestListingDetailNotFound(t *testing.T) {
	listings := &mockListingService{}
	listingID := utils.NewSixID()
	listings.On("ViewByID", mock.Anything, (*models.Account)(nil), listingID).
		Return(nil, apperr.Newf(apperr.KindNotFound, "Listing %s not found", listingID.String()))

	r := newListingRouter(listings, nil)
	w, envelope := doJSON(t, r, http.MethodGet, "/listings/"+listingID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, envelope["success"])
}

func TestListingDetailBadID(t *testing.T) {
	listings := &mockListingService{}
	r := newListingRouter(listings, nil)

	w, _ := doJSON(t, r, http.MethodGet, "/listings/niet", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	listings.AssertNotCalled(t, "ViewByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateListingMapsPrivateBlock(t *testing.T) {
	seller := &models.Account{Role: models.RoleSeller, AccountStatus: models.AccountActive}
	seller.GenID()
	listings := &mockListingService{}
	created := &models.Listing{Title: "Cafe", Tier: models.TierBasic, Status: models.ListingPending}
	created.GenID()
	listings.On("Create", mock.Anything, seller, mock.MatchedBy(func(in services.ListingInput) bool {
		return in.Private != nil && in.Private.LegalBusinessName == "Cafe LLC" && in.Price == 250000
	})).Return(created, nil)

	r := newListingRouter(listings, seller)
	w, _ := doJSON(t, r, http.MethodPost, "/listings", gin.H{
		"title":             "Cafe",
		"industry":          "food",
		"region":            "Dubai",
		"price":             250000,
		"legalBusinessName": "Cafe LLC",
		"ownerName":         "O",
		"fullAddress":       "1 Bread St",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	listings.AssertExpectations(t)
}

func TestCreateListingUpstreamFailure(t *testing.T) {
	seller := &models.Account{Role: models.RoleSeller, AccountStatus: models.AccountActive}
	seller.GenID()
	listings := &mockListingService{}
	listings.On("Create", mock.Anything, seller, mock.Anything).
		Return(nil, apperr.New(apperr.KindUpstream, "Payment was declined"))

	r := newListingRouter(listings, seller)
	w, envelope := doJSON(t, r, http.MethodPost, "/listings", gin.H{
		"title":    "Big Co",
		"industry": "logistics",
		"region":   "Dubai",
		"price":    750000,
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Payment was declined", envelope["message"])
}

func TestDeleteListingConflictEnvelope(t *testing.T) {
	seller := &models.Account{Role: models.RoleSeller, AccountStatus: models.AccountActive}
	seller.GenID()
	listingID := utils.NewSixID()
	listings := &mockListingService{}
	listings.On("Delete", mock.Anything, seller, listingID).
		Return(apperr.New(apperr.KindAuthorization, "Only the listing owner can remove it"))

	r := newListingRouter(listings, seller)
	w, envelope := doJSON(t, r, http.MethodDelete, "/listings/"+listingID.String(), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, envelope["success"])
}

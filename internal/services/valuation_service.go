package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"biztech/api/internal/apperr"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/policy"
)

// ValuationInput carries a public valuation enquiry. No account is required;
// these come from the marketing pages.
type ValuationInput struct {
	Name         string
	Email        string
	Mobile       string
	BusinessName string
	Industry     string
	Turnover     float64
	Message      string
}

// IValuationService defines the interface for valuation request operations.
type IValuationService interface {
	Create(ctx context.Context, input ValuationInput) (*models.ValuationRequest, error)
	List(ctx context.Context, actor *models.Account) ([]models.ValuationRequest, error)
}

const valuationsCollection = "valuation_requests"

type valuationService struct {
	db *mongo.Database
}

// NewValuationService creates a new ValuationService.
func NewValuationService(database *mongo.Database) IValuationService {
	return &valuationService{db: database}
}

// Create records a free valuation request.
func (s *valuationService) Create(ctx context.Context, input ValuationInput) (*models.ValuationRequest, error) {
	if input.Name == "" || input.Email == "" {
		return nil, apperr.New(apperr.KindValidation, "Name and email are required")
	}
	if input.BusinessName == "" {
		return nil, apperr.New(apperr.KindValidation, "Business name is required")
	}

	doc, err := db.InsertOne(ctx, s.db.Collection(valuationsCollection), &models.ValuationRequest{
		Name:         input.Name,
		Email:        input.Email,
		Mobile:       input.Mobile,
		BusinessName: input.BusinessName,
		Industry:     input.Industry,
		Turnover:     input.Turnover,
		Message:      input.Message,
		CreatedAt:    time.Now().UTC(),
		Deleted:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("error inserting valuation request for %s: %w", input.Email, err)
	}
	return doc.(*models.ValuationRequest), nil
}

// List returns all valuation requests for admin follow-up, newest first.
func (s *valuationService) List(ctx context.Context, actor *models.Account) ([]models.ValuationRequest, error) {
	if !policy.CanApprove(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(valuationsCollection).Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.ValuationRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode valuation requests: %w", err)
	}
	return requests, nil
}

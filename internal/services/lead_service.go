package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"biztech/api/internal/apperr"
	"biztech/api/internal/models"
	"biztech/api/internal/policy"
	"biztech/api/internal/utils"
)

// LeadWithListing pairs a lead with the listing it targets, for pipeline
// views that need both.
type LeadWithListing struct {
	Lead    models.Lead    `json:"lead"`
	Listing models.Listing `json:"listing"`
}

// ILeadService defines the interface for lead-related operations.
type ILeadService interface {
	Create(ctx context.Context, actor *models.Account, listingID utils.SixID, message string) (*models.Lead, error)
	FindByID(ctx context.Context, leadID utils.SixID) (*models.Lead, error)
	ListByAgent(ctx context.Context, actor *models.Account) ([]LeadWithListing, error)
	ListByBuyer(ctx context.Context, actor *models.Account) ([]LeadWithListing, error)
	UpdateStatus(ctx context.Context, actor *models.Account, leadID utils.SixID, status models.LeadStatus) (*models.Lead, error)
}

const leadsCollection = "leads"

// leadService implements ILeadService.
type leadService struct {
	db       *mongo.Database
	listings IListingService
}

// NewLeadService creates a new LeadService.
func NewLeadService(database *mongo.Database, listings IListingService) ILeadService {
	return &leadService{db: database, listings: listings}
}

// Create records a buyer's enquiry on an active listing. One enquiry per
// buyer per listing: the unique (listing_id, buyer_id) index is the
// authority, so two concurrent submissions cannot both land.
func (s *leadService) Create(ctx context.Context, actor *models.Account, listingID utils.SixID, message string) (*models.Lead, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !policy.CanEnquire(actor, listing) {
		if actor == nil || actor.Role != models.RoleBuyer {
			return nil, apperr.New(apperr.KindAuthorization, "Only buyers can enquire about listings")
		}
		if !actor.IsActive() {
			return nil, apperr.New(apperr.KindAuthorization, "Your account is not active yet")
		}
		return nil, apperr.Newf(apperr.KindConflict, "Listing %s is not open for enquiries", listingID.String())
	}

	now := time.Now().UTC()
	lead := &models.Lead{
		ListingID: listingID,
		BuyerID:   actor.ID,
		Message:   message,
		Status:    models.LeadNew,
		CreatedAt: now,
		UpdatedAt: now,
		Deleted:   false,
	}
	lead.GenIDIfEmpty()

	// Inserted directly rather than through the retrying helper: a duplicate
	// key here means the (listing, buyer) pair already exists, and retrying
	// with a fresh _id would just hit the same pair index again.
	_, err = s.db.Collection(leadsCollection).InsertOne(ctx, lead)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.New(apperr.KindConflict, "You have already enquired about this listing")
		}
		return nil, fmt.Errorf("error inserting lead for listing %s: %w", listingID.String(), err)
	}
	return lead, nil
}

// FindByID finds a non-deleted lead by its ID.
func (s *leadService) FindByID(ctx context.Context, leadID utils.SixID) (*models.Lead, error) {
	var lead models.Lead
	filter := bson.M{"_id": leadID, "deleted": false}

	err := s.db.Collection(leadsCollection).FindOne(ctx, filter).Decode(&lead)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Newf(apperr.KindNotFound, "Lead %s not found", leadID.String())
		}
		return nil, fmt.Errorf("error finding lead by ID %s: %w", leadID.String(), err)
	}
	return &lead, nil
}

// ListByAgent returns the leads on listings assigned to the acting agent,
// paired with their listings.
func (s *leadService) ListByAgent(ctx context.Context, actor *models.Account) ([]LeadWithListing, error) {
	if actor == nil || actor.Role != models.RoleAgent {
		return nil, apperr.New(apperr.KindAuthorization, "Agent privileges required")
	}

	listings, err := s.listings.ListByAgent(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return []LeadWithListing{}, nil
	}

	byID := make(map[utils.SixID]models.Listing, len(listings))
	ids := make(bson.A, 0, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	leads, err := s.find(ctx, bson.M{"listing_id": bson.M{"$in": ids}, "deleted": false})
	if err != nil {
		return nil, err
	}

	out := make([]LeadWithListing, 0, len(leads))
	for _, lead := range leads {
		out = append(out, LeadWithListing{Lead: lead, Listing: byID[lead.ListingID]})
	}
	return out, nil
}

// ListByBuyer returns the acting buyer's own enquiries with their listings.
func (s *leadService) ListByBuyer(ctx context.Context, actor *models.Account) ([]LeadWithListing, error) {
	if actor == nil || actor.Role != models.RoleBuyer {
		return nil, apperr.New(apperr.KindAuthorization, "Buyer privileges required")
	}

	leads, err := s.find(ctx, bson.M{"buyer_id": actor.ID, "deleted": false})
	if err != nil {
		return nil, err
	}

	out := make([]LeadWithListing, 0, len(leads))
	for _, lead := range leads {
		listing, err := s.listings.FindByID(ctx, lead.ListingID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, LeadWithListing{Lead: lead, Listing: *listing})
	}
	return out, nil
}

// UpdateStatus moves a lead to any pipeline stage. Stages are labels, not a
// one-way ladder: a closed lead can be reopened to negotiating.
func (s *leadService) UpdateStatus(ctx context.Context, actor *models.Account, leadID utils.SixID, status models.LeadStatus) (*models.Lead, error) {
	if !models.ValidLeadStatus(status) {
		return nil, apperr.Newf(apperr.KindValidation, "Invalid lead status %q", status)
	}

	lead, err := s.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.FindByID(ctx, lead.ListingID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateLead(actor, listing) {
		return nil, apperr.New(apperr.KindAuthorization, "Only the assigned agent can manage this lead")
	}

	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Lead
	err = s.db.Collection(leadsCollection).FindOneAndUpdate(ctx, bson.M{"_id": leadID, "deleted": false}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Newf(apperr.KindNotFound, "Lead %s not found", leadID.String())
		}
		return nil, fmt.Errorf("failed to update lead %s: %w", leadID.String(), err)
	}
	return &updated, nil
}

func (s *leadService) find(ctx context.Context, filter bson.M) ([]models.Lead, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(leadsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err = cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}
	return leads, nil
}

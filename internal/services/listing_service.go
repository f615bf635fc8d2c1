package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"biztech/api/internal/apperr"
	"biztech/api/internal/cache"
	"biztech/api/internal/config"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/payment"
	"biztech/api/internal/policy"
	"biztech/api/internal/tier"
	"biztech/api/internal/utils"
)

// ListingInput carries the seller-editable fields of a listing.
type ListingInput struct {
	Title       string
	Industry    string
	Region      string
	Price       float64
	Turnover    float64
	NetProfit   float64
	Description string
	Private     *models.PrivateData
}

// ListingFilter narrows public browse queries.
type ListingFilter struct {
	Industry string
	Region   string
	MinPrice *float64
	MaxPrice *float64
	Tier     *models.Tier
}

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	Create(ctx context.Context, actor *models.Account, input ListingInput) (*models.Listing, error)
	FindByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error)
	ViewByID(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.ListingView, error)
	ListActive(ctx context.Context, actor *models.Account, filter ListingFilter) ([]models.ListingView, error)
	Update(ctx context.Context, actor *models.Account, listingID utils.SixID, input ListingInput) (*models.Listing, error)
	Delete(ctx context.Context, actor *models.Account, listingID utils.SixID) error
	ListPending(ctx context.Context, actor *models.Account) ([]models.Listing, error)
	AssignAgent(ctx context.Context, actor *models.Account, listingID, agentID utils.SixID) (*models.Listing, error)
	Reject(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.Listing, error)
	ToggleDeliverable(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, ready bool) (*models.Listing, error)
	AuthorizeDeliverableUpload(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag) error
	AttachDeliverableDocument(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, key string) error
	ListByAgent(ctx context.Context, agentID utils.SixID) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Listing, error)
	FlushViews(ctx context.Context) (int, error)
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db        *mongo.Database
	cfg       *config.Config
	processor payment.IProcessor
	views     cache.IViewCounter
	accounts  IAccountService
}

// NewListingService creates a new ListingService.
func NewListingService(database *mongo.Database, cfg *config.Config, processor payment.IProcessor, views cache.IViewCounter, accounts IAccountService) IListingService {
	return &listingService{
		db:        database,
		cfg:       cfg,
		processor: processor,
		views:     views,
		accounts:  accounts,
	}
}

// Create validates and persists a new pending listing. The tier is classified
// from the asking price here and never recomputed. Premium listings are
// charged the listing fee BEFORE the insert; if the insert then fails the
// charge is refunded, so a seller is never billed for a listing that does not
// exist.
func (s *listingService) Create(ctx context.Context, actor *models.Account, input ListingInput) (*models.Listing, error) {
	if !policy.CanCreateListing(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Only active sellers can create listings")
	}
	if err := validateListingInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		SellerID:    actor.ID,
		Tier:        tier.Classify(input.Price, s.cfg.PremiumPriceThreshold),
		Status:      models.ListingPending,
		Title:       input.Title,
		Industry:    input.Industry,
		Region:      input.Region,
		Price:       input.Price,
		Turnover:    input.Turnover,
		NetProfit:   input.NetProfit,
		Description: input.Description,
		Private:     input.Private,
		CreatedAt:   now,
		UpdatedAt:   now,
		Deleted:     false,
	}

	if listing.Tier == models.TierPremium {
		description := fmt.Sprintf("Premium listing fee: %s", input.Title)
		captured, err := s.processor.Charge(ctx, actor.ID, s.cfg.PremiumListingFee, s.cfg.FeeCurrencyCode, description)
		if err != nil {
			return nil, err
		}
		listing.PaymentID = &captured.ID
	}

	doc, err := db.InsertOne(ctx, s.db.Collection(listingsCollection), listing)
	if err != nil {
		if listing.PaymentID != nil {
			if refundErr := s.processor.Refund(ctx, *listing.PaymentID); refundErr != nil {
				log.Printf("CRITICAL: failed to refund payment %s after listing insert failure: %v", listing.PaymentID.String(), refundErr)
			}
		}
		return nil, fmt.Errorf("error inserting listing for seller %s: %w", actor.ID.String(), err)
	}
	return doc.(*models.Listing), nil
}

// FindByID finds a non-deleted listing by its ID. No visibility filtering is
// applied; callers serialize through the policy package.
func (s *listingService) FindByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error) {
	var listing models.Listing
	filter := bson.M{"_id": listingID, "deleted": false}

	err := s.db.Collection(listingsCollection).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Newf(apperr.KindNotFound, "Listing %s not found", listingID.String())
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", listingID.String(), err)
	}
	return &listing, nil
}

// ViewByID returns a listing serialized for the given viewer. Non-active
// listings are visible only to their owner, the assigned agent and admins.
// A successful public view bumps the pending view counter.
func (s *listingService) ViewByID(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.ListingView, error) {
	listing, err := s.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.Status != models.ListingActive && !policy.CanViewPrivateData(actor, listing) {
		// Indistinguishable from a missing listing on purpose.
		return nil, apperr.Newf(apperr.KindNotFound, "Listing %s not found", listingID.String())
	}

	if listing.Status == models.ListingActive && !policy.CanViewPrivateData(actor, listing) {
		s.views.Bump(ctx, listing.ID)
	}

	view := policy.ViewListing(actor, listing)
	return &view, nil
}

// ListActive returns active listings matching the filter, serialized for the
// viewer. Browsing never exposes private data regardless of who asks; the
// detail endpoint is where owners and agents get the full document.
func (s *listingService) ListActive(ctx context.Context, actor *models.Account, filter ListingFilter) ([]models.ListingView, error) {
	query := bson.M{"status": models.ListingActive, "deleted": false}
	if filter.Industry != "" {
		query["industry"] = filter.Industry
	}
	if filter.Region != "" {
		query["region"] = filter.Region
	}
	if filter.Tier != nil {
		query["tier"] = *filter.Tier
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.M{}
		if filter.MinPrice != nil {
			price["$gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			price["$lte"] = *filter.MaxPrice
		}
		query["price"] = price
	}

	// Premium listings sort ahead of basic ones, newest first within a tier.
	opts := options.Find().SetSort(bson.D{
		{Key: "tier", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query active listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode active listings: %w", err)
	}

	views := make([]models.ListingView, 0, len(listings))
	for i := range listings {
		views = append(views, policy.ViewListing(actor, &listings[i]))
	}
	return views, nil
}

// Update edits a listing still awaiting review. Only the owner can edit, only
// while pending, and the price cannot move the listing across the tier
// boundary because the tier was fixed when the fee decision was made.
func (s *listingService) Update(ctx context.Context, actor *models.Account, listingID utils.SixID, input ListingInput) (*models.Listing, error) {
	if err := validateListingInput(input); err != nil {
		return nil, err
	}

	listing, err := s.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditListing(actor, listing) {
		if actor == nil || listing.SellerID != actor.ID {
			return nil, apperr.New(apperr.KindAuthorization, "Only the listing owner can edit it")
		}
		return nil, apperr.New(apperr.KindConflict, "Only pending listings can be edited")
	}
	if tier.Classify(input.Price, s.cfg.PremiumPriceThreshold) != listing.Tier {
		return nil, apperr.New(apperr.KindValidation, "The new price would change the listing tier; create a new listing instead")
	}

	set := bson.M{
		"title":       input.Title,
		"industry":    input.Industry,
		"region":      input.Region,
		"price":       input.Price,
		"turnover":    input.Turnover,
		"net_profit":  input.NetProfit,
		"description": input.Description,
		"updated_at":  time.Now().UTC(),
	}
	if input.Private != nil {
		set["private"] = input.Private
	}

	// Status re-checked in the filter: an approval racing this edit wins.
	filter := bson.M{
		"_id":     listingID,
		"deleted": false,
		"status":  models.ListingPending,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err = s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.KindConflict, "Only pending listings can be edited")
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.String(), err)
	}
	return &updated, nil
}

// Delete soft-deletes a listing. Owners can withdraw their own listings at
// any stage; admins can remove anything.
func (s *listingService) Delete(ctx context.Context, actor *models.Account, listingID utils.SixID) error {
	listing, err := s.FindByID(ctx, listingID)
	if err != nil {
		return err
	}
	if actor == nil || (listing.SellerID != actor.ID && actor.Role != models.RoleAdmin) {
		return apperr.New(apperr.KindAuthorization, "Only the listing owner can remove it")
	}

	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(listingsCollection).UpdateByID(ctx, listingID, update)
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", listingID.String(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.Newf(apperr.KindNotFound, "Listing %s not found", listingID.String())
	}
	return nil
}

// ListPending returns the admin review queue, oldest first.
func (s *listingService) ListPending(ctx context.Context, actor *models.Account) ([]models.Listing, error) {
	if !policy.CanApprove(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}

	filter := bson.M{"status": models.ListingPending, "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode pending listings: %w", err)
	}
	return listings, nil
}

// AssignAgent approves a listing and attaches the agent in one conditional
// update. There is no moment where the listing is active without an agent or
// has an agent while still invisible.
func (s *listingService) AssignAgent(ctx context.Context, actor *models.Account, listingID, agentID utils.SixID) (*models.Listing, error) {
	agent, err := s.accounts.FindByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAssignAgent(actor, agent) {
		if actor == nil || actor.Role != models.RoleAdmin {
			return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
		}
		return nil, apperr.Newf(apperr.KindValidation, "Account %s is not an active agent", agentID.String())
	}

	// Reassignment of an already-active listing is allowed; deliverable
	// progress survives it untouched.
	filter := bson.M{
		"_id":     listingID,
		"deleted": false,
		"status":  bson.M{"$in": bson.A{models.ListingPending, models.ListingActive}},
	}
	update := bson.M{"$set": bson.M{
		"status":            models.ListingActive,
		"assigned_agent_id": agentID,
		"updated_at":        time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err = s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, findErr := s.FindByID(ctx, listingID); findErr != nil {
				return nil, findErr
			}
			return nil, apperr.Newf(apperr.KindConflict, "Listing %s has been rejected and cannot be activated", listingID.String())
		}
		return nil, fmt.Errorf("failed to assign agent to listing %s: %w", listingID.String(), err)
	}
	return &updated, nil
}

// Reject declines a pending listing.
func (s *listingService) Reject(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.Listing, error) {
	if !policy.CanApprove(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}

	filter := bson.M{
		"_id":     listingID,
		"deleted": false,
		"status":  models.ListingPending,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.ListingRejected,
		"updated_at": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, findErr := s.FindByID(ctx, listingID); findErr != nil {
				return nil, findErr
			}
			return nil, apperr.Newf(apperr.KindConflict, "Listing %s is not awaiting review", listingID.String())
		}
		return nil, fmt.Errorf("failed to reject listing %s: %w", listingID.String(), err)
	}
	return &updated, nil
}

// ToggleDeliverable sets one premium fulfillment flag. Setting a flag to its
// current value is a no-op success. The precondition (premium, active,
// actor is the assigned agent) lives in the update filter so a concurrent
// reassignment cannot slip a stale agent's toggle through.
func (s *listingService) ToggleDeliverable(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, ready bool) (*models.Listing, error) {
	if !models.ValidDeliverableFlag(flag) {
		return nil, apperr.Newf(apperr.KindValidation, "Unknown deliverable %q", flag)
	}
	if actor == nil || actor.Role != models.RoleAgent {
		return nil, apperr.New(apperr.KindAuthorization, "Only the assigned agent can update deliverables")
	}

	filter := bson.M{
		"_id":               listingID,
		"deleted":           false,
		"tier":              models.TierPremium,
		"status":            models.ListingActive,
		"assigned_agent_id": actor.ID,
	}
	update := bson.M{"$set": bson.M{
		"deliverables." + string(flag): ready,
		"updated_at":                   time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseDeliverableFailure(ctx, actor, listingID)
		}
		return nil, fmt.Errorf("failed to toggle deliverable on listing %s: %w", listingID.String(), err)
	}
	return &updated, nil
}

// AuthorizeDeliverableUpload checks that the actor may attach a document for
// the given deliverable without writing anything. The upload flow runs this
// before minting a pre-signed URL; AttachDeliverableDocument re-checks the
// same precondition atomically when the key is recorded.
func (s *listingService) AuthorizeDeliverableUpload(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag) error {
	if !models.ValidDeliverableFlag(flag) {
		return apperr.Newf(apperr.KindValidation, "Unknown deliverable %q", flag)
	}
	if actor == nil || actor.Role != models.RoleAgent {
		return apperr.New(apperr.KindAuthorization, "Only the assigned agent can upload documents")
	}

	listing, err := s.FindByID(ctx, listingID)
	if err != nil {
		return err
	}
	if !policy.CanToggleDeliverable(actor, listing) {
		return s.diagnoseDeliverableFailure(ctx, actor, listingID)
	}
	return nil
}

// AttachDeliverableDocument records the storage key of an uploaded artefact
// under its deliverable slot.
func (s *listingService) AttachDeliverableDocument(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, key string) error {
	if !models.ValidDeliverableFlag(flag) {
		return apperr.Newf(apperr.KindValidation, "Unknown deliverable %q", flag)
	}
	if actor == nil || actor.Role != models.RoleAgent {
		return apperr.New(apperr.KindAuthorization, "Only the assigned agent can upload documents")
	}

	var field string
	switch flag {
	case models.DeliverableSalePack:
		field = "deliverables.sale_pack_key"
	case models.DeliverableFinancialAnalysis:
		field = "deliverables.financial_analysis_key"
	case models.DeliverableLegalAttestation:
		field = "deliverables.legal_attestation_key"
	}

	filter := bson.M{
		"_id":               listingID,
		"deleted":           false,
		"tier":              models.TierPremium,
		"status":            models.ListingActive,
		"assigned_agent_id": actor.ID,
	}
	update := bson.M{"$set": bson.M{field: key, "updated_at": time.Now().UTC()}}

	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to attach document to listing %s: %w", listingID.String(), err)
	}
	if result.MatchedCount == 0 {
		return s.diagnoseDeliverableFailure(ctx, actor, listingID)
	}
	return nil
}

// diagnoseDeliverableFailure turns a zero-match deliverable update into the
// most specific error available.
func (s *listingService) diagnoseDeliverableFailure(ctx context.Context, actor *models.Account, listingID utils.SixID) error {
	listing, err := s.FindByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.Tier != models.TierPremium {
		return apperr.New(apperr.KindConflict, "Deliverables are tracked for premium listings only")
	}
	if listing.AssignedAgentID == nil || *listing.AssignedAgentID != actor.ID {
		return apperr.New(apperr.KindAuthorization, "Only the assigned agent can update deliverables")
	}
	return apperr.Newf(apperr.KindConflict, "Listing %s is not active", listingID.String())
}

// ListByAgent returns the listings assigned to an agent, newest first.
func (s *listingService) ListByAgent(ctx context.Context, agentID utils.SixID) ([]models.Listing, error) {
	return s.find(ctx, bson.M{"assigned_agent_id": agentID, "deleted": false})
}

// ListBySeller returns a seller's own listings in every status.
func (s *listingService) ListBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Listing, error) {
	return s.find(ctx, bson.M{"seller_id": sellerID, "deleted": false})
}

func (s *listingService) find(ctx context.Context, filter bson.M) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// FlushViews drains the pending view counters into the view totals. Counts
// for listings deleted in the meantime are dropped.
func (s *listingService) FlushViews(ctx context.Context) (int, error) {
	pending, err := s.views.Drain(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	flushed := 0
	for listingID, count := range pending {
		update := bson.M{"$inc": bson.M{"views": count}}
		result, err := s.db.Collection(listingsCollection).UpdateByID(ctx, listingID, update)
		if err != nil {
			log.Printf("WARN: failed to flush %d views for listing %s: %v", count, listingID.String(), err)
			continue
		}
		if result.MatchedCount > 0 {
			flushed++
		}
	}
	return flushed, nil
}

func validateListingInput(input ListingInput) error {
	if input.Title == "" {
		return apperr.New(apperr.KindValidation, "Title is required")
	}
	if input.Industry == "" || input.Region == "" {
		return apperr.New(apperr.KindValidation, "Industry and region are required")
	}
	if input.Price <= 0 {
		return apperr.New(apperr.KindValidation, "Price must be greater than zero")
	}
	if input.Turnover < 0 || input.NetProfit < 0 {
		return apperr.New(apperr.KindValidation, "Financial figures cannot be negative")
	}
	return nil
}

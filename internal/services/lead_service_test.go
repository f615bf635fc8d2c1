package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biztech/api/internal/apperr"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/utils"
)

func setupLeadFixture(t *testing.T) (*listingFixture, ILeadService) {
	t.Helper()
	f := setupListingFixture(t)
	require.NoError(t, db.EnsureIndexes(context.Background(), f.db))
	return f, NewLeadService(f.db, f.listings)
}

func activateListing(t *testing.T, f *listingFixture, listing *models.Listing) *models.Listing {
	t.Helper()
	updated, err := f.listings.AssignAgent(context.Background(), f.admin, listing.ID, f.agent.ID)
	require.NoError(t, err)
	return updated
}

func TestCreateLeadUniquePerPair(t *testing.T) {
	f, leads := setupLeadFixture(t)
	listing := activateListing(t, f, f.createListing(t, basicInput()))
	ctx := context.Background()

	lead, err := leads.Create(ctx, f.buyer, listing.ID, "Interested, please call me")
	require.NoError(t, err)
	assert.Equal(t, models.LeadNew, lead.Status)
	assert.Equal(t, f.buyer.ID, lead.BuyerID)

	_, err = leads.Create(ctx, f.buyer, listing.ID, "Second attempt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// A different buyer may still enquire.
	otherBuyer := insertAccount(t, f.db, models.RoleBuyer, models.AccountActive, "buyer2@fixture.test")
	_, err = leads.Create(ctx, otherBuyer, listing.ID, "Also interested")
	assert.NoError(t, err)

	// And the same buyer may enquire on a different listing.
	second := activateListing(t, f, f.createListing(t, premiumListingInput(t, f)))
	_, err = leads.Create(ctx, f.buyer, second.ID, "This one too")
	assert.NoError(t, err)
}

// premiumListingInput returns a premium input with the charge expectation set.
func premiumListingInput(t *testing.T, f *listingFixture) ListingInput {
	t.Helper()
	f.expectCharge(capturedPayment(), nil)
	return premiumInput()
}

func TestCreateLeadRaceOnlyOneWins(t *testing.T) {
	f, leads := setupLeadFixture(t)
	listing := activateListing(t, f, f.createListing(t, basicInput()))
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = leads.Create(ctx, f.buyer, listing.ID, "racing")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindConflict))
		}
	}
	assert.Equal(t, 1, succeeded, "the unique index admits exactly one lead per pair")
}

func TestCreateLeadAuthorization(t *testing.T) {
	f, leads := setupLeadFixture(t)
	ctx := context.Background()
	pending := f.createListing(t, basicInput())

	// Pending listing is not open for enquiries.
	_, err := leads.Create(ctx, f.buyer, pending.ID, "too early")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	listing := activateListing(t, f, pending)

	_, err = leads.Create(ctx, f.seller, listing.ID, "my own listing")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = leads.Create(ctx, nil, listing.ID, "anonymous")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	pendingBuyer := insertAccount(t, f.db, models.RoleBuyer, models.AccountPending, "pb@fixture.test")
	_, err = leads.Create(ctx, pendingBuyer, listing.ID, "not approved yet")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = leads.Create(ctx, f.buyer, utils.NewSixID(), "no such listing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateLeadStatusFreeTransitions(t *testing.T) {
	f, leads := setupLeadFixture(t)
	listing := activateListing(t, f, f.createListing(t, basicInput()))
	ctx := context.Background()

	lead, err := leads.Create(ctx, f.buyer, listing.ID, "hello")
	require.NoError(t, err)

	// Stages are labels: any order is allowed, including reopening.
	for _, status := range []models.LeadStatus{
		models.LeadClosed,
		models.LeadNegotiating,
		models.LeadContacted,
		models.LeadNew,
	} {
		updated, err := leads.UpdateStatus(ctx, f.agent, lead.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = leads.UpdateStatus(ctx, f.agent, lead.ID, "archived")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// Admins may also manage leads; unassigned agents may not.
	_, err = leads.UpdateStatus(ctx, f.admin, lead.ID, models.LeadContacted)
	assert.NoError(t, err)

	otherAgent := insertAccount(t, f.db, models.RoleAgent, models.AccountActive, "oa@fixture.test")
	_, err = leads.UpdateStatus(ctx, otherAgent, lead.ID, models.LeadClosed)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = leads.UpdateStatus(ctx, f.buyer, lead.ID, models.LeadClosed)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

func TestListLeadsByAgentAndBuyer(t *testing.T) {
	f, leads := setupLeadFixture(t)
	listing := activateListing(t, f, f.createListing(t, basicInput()))
	ctx := context.Background()

	_, err := leads.Create(ctx, f.buyer, listing.ID, "hello")
	require.NoError(t, err)

	byAgent, err := leads.ListByAgent(ctx, f.agent)
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, listing.ID, byAgent[0].Listing.ID)
	assert.Equal(t, f.buyer.ID, byAgent[0].Lead.BuyerID)

	// An agent with no listings has an empty pipeline.
	otherAgent := insertAccount(t, f.db, models.RoleAgent, models.AccountActive, "empty@fixture.test")
	empty, err := leads.ListByAgent(ctx, otherAgent)
	require.NoError(t, err)
	assert.Empty(t, empty)

	byBuyer, err := leads.ListByBuyer(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, listing.ID, byBuyer[0].Listing.ID)

	_, err = leads.ListByAgent(ctx, f.buyer)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	_, err = leads.ListByBuyer(ctx, f.agent)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

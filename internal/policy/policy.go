// Package policy is the single source of truth for "may this account perform
// this action". Every rule here is a pure function over in-memory records;
// error signaling and persistence are the caller's concern. A nil actor means
// an unauthenticated viewer.
package policy

import (
	"biztech/api/internal/models"
)

// CanApprove reports whether the actor may approve or reject accounts and
// listings.
func CanApprove(actor *models.Account) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// CanAssignAgent reports whether the actor may assign the given agent to a
// listing. Only admins assign, and only active agents are assignable.
func CanAssignAgent(actor, agent *models.Account) bool {
	if actor == nil || actor.Role != models.RoleAdmin {
		return false
	}
	return agent != nil && agent.Role == models.RoleAgent && agent.IsActive()
}

// CanCreateAgent reports whether the actor may create agent accounts.
func CanCreateAgent(actor *models.Account) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// CanViewPrivateData reports whether the actor may see a listing's private
// block: the owning seller, the assigned agent, or an admin.
func CanViewPrivateData(actor *models.Account, listing *models.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.ID == listing.SellerID {
		return true
	}
	return listing.AssignedAgentID != nil && actor.ID == *listing.AssignedAgentID
}

// CanCreateListing reports whether the actor may create listings: an approved
// seller only.
func CanCreateListing(actor *models.Account) bool {
	return actor != nil && actor.Role == models.RoleSeller && actor.IsActive()
}

// CanEditListing reports whether the actor may modify or delete the listing's
// content. Owners edit their own pending listings; content of active and
// rejected listings is frozen.
func CanEditListing(actor *models.Account, listing *models.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	return actor.ID == listing.SellerID && listing.Status == models.ListingPending
}

// CanEnquire reports whether the actor may submit an enquiry on the listing:
// an approved buyer against an active listing. Enquiring on one's own listing
// is meaningless and refused. Per-pair uniqueness is enforced by storage, not
// here.
func CanEnquire(actor *models.Account, listing *models.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	if actor.Role != models.RoleBuyer || !actor.IsActive() {
		return false
	}
	return listing.Status == models.ListingActive
}

// CanToggleDeliverable reports whether the actor may flip a deliverable flag:
// only the currently assigned agent, only while the listing is active, and
// only for premium listings (basic listings have no deliverables).
func CanToggleDeliverable(actor *models.Account, listing *models.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	if actor.Role != models.RoleAgent || listing.Status != models.ListingActive {
		return false
	}
	if listing.Tier != models.TierPremium {
		return false
	}
	return listing.AssignedAgentID != nil && actor.ID == *listing.AssignedAgentID
}

// CanUpdateLead reports whether the actor may change the status of a lead on
// the given listing: the assigned agent or an admin.
func CanUpdateLead(actor *models.Account, listing *models.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.Role != models.RoleAgent {
		return false
	}
	return listing.AssignedAgentID != nil && actor.ID == *listing.AssignedAgentID
}

// ViewListing serializes a listing for the given viewer. The private block and
// the deliverable checklist are present only when the policy allows; for all
// other viewers they are absent, never an error.
func ViewListing(actor *models.Account, listing *models.Listing) models.ListingView {
	view := models.ListingView{
		ID:              listing.ID,
		SellerID:        listing.SellerID,
		Tier:            listing.Tier,
		Status:          listing.Status,
		Views:           listing.Views,
		Title:           listing.Title,
		Industry:        listing.Industry,
		Region:          listing.Region,
		Price:           listing.Price,
		Turnover:        listing.Turnover,
		NetProfit:       listing.NetProfit,
		Description:     listing.Description,
		AssignedAgentID: listing.AssignedAgentID,
		CreatedAt:       listing.CreatedAt,
	}
	if CanViewPrivateData(actor, listing) {
		view.PrivateData = listing.Private
		if listing.Tier == models.TierPremium {
			deliverables := listing.Deliverables
			view.Deliverables = &deliverables
		}
	}
	return view
}

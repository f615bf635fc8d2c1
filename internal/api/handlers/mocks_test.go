package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/utils"
)

// mockAccountService mocks services.IAccountService.
type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) Register(ctx context.Context, input services.RegisterInput) (*models.Account, *models.VerificationAction, error) {
	args := m.Called(ctx, input)
	var account *models.Account
	var action *models.VerificationAction
	if args.Get(0) != nil {
		account = args.Get(0).(*models.Account)
	}
	if args.Get(1) != nil {
		action = args.Get(1).(*models.VerificationAction)
	}
	return account, action, args.Error(2)
}

func (m *mockAccountService) VerifyEmail(ctx context.Context, code string) (*models.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*models.Account, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) RequestPasswordReset(ctx context.Context, email string) (*models.Account, *models.VerificationAction, error) {
	args := m.Called(ctx, email)
	var account *models.Account
	var action *models.VerificationAction
	if args.Get(0) != nil {
		account = args.Get(0).(*models.Account)
	}
	if args.Get(1) != nil {
		action = args.Get(1).(*models.VerificationAction)
	}
	return account, action, args.Error(2)
}

func (m *mockAccountService) ResetPassword(ctx context.Context, code, newPassword string) error {
	args := m.Called(ctx, code, newPassword)
	return args.Error(0)
}

func (m *mockAccountService) FindByID(ctx context.Context, accountID utils.SixID) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) ListAccounts(ctx context.Context, actor *models.Account, role *models.Role, status *models.AccountStatus) ([]models.Account, error) {
	args := m.Called(ctx, actor, role, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}

func (m *mockAccountService) SetAccountStatus(ctx context.Context, actor *models.Account, accountID utils.SixID, status models.AccountStatus) (*models.Account, error) {
	args := m.Called(ctx, actor, accountID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) CreateAgent(ctx context.Context, actor *models.Account, name, email, mobile, password string) (*models.Account, error) {
	args := m.Called(ctx, actor, name, email, mobile, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) PurgeExpiredVerifications(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// mockListingService mocks services.IListingService.
type mockListingService struct {
	mock.Mock
}

func (m *mockListingService) Create(ctx context.Context, actor *models.Account, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) FindByID(ctx context.Context, listingID utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) ViewByID(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.ListingView, error) {
	args := m.Called(ctx, actor, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingView), args.Error(1)
}

func (m *mockListingService) ListActive(ctx context.Context, actor *models.Account, filter services.ListingFilter) ([]models.ListingView, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingView), args.Error(1)
}

func (m *mockListingService) Update(ctx context.Context, actor *models.Account, listingID utils.SixID, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) Delete(ctx context.Context, actor *models.Account, listingID utils.SixID) error {
	args := m.Called(ctx, actor, listingID)
	return args.Error(0)
}

func (m *mockListingService) ListPending(ctx context.Context, actor *models.Account) ([]models.Listing, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingService) AssignAgent(ctx context.Context, actor *models.Account, listingID, agentID utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) Reject(ctx context.Context, actor *models.Account, listingID utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) ToggleDeliverable(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, ready bool) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID, flag, ready)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingService) AuthorizeDeliverableUpload(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag) error {
	args := m.Called(ctx, actor, listingID, flag)
	return args.Error(0)
}

func (m *mockListingService) AttachDeliverableDocument(ctx context.Context, actor *models.Account, listingID utils.SixID, flag models.DeliverableFlag, key string) error {
	args := m.Called(ctx, actor, listingID, flag, key)
	return args.Error(0)
}

func (m *mockListingService) ListByAgent(ctx context.Context, agentID utils.SixID) ([]models.Listing, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingService) ListBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Listing, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingService) FlushViews(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// mockLeadService mocks services.ILeadService.
type mockLeadService struct {
	mock.Mock
}

func (m *mockLeadService) Create(ctx context.Context, actor *models.Account, listingID utils.SixID, message string) (*models.Lead, error) {
	args := m.Called(ctx, actor, listingID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *mockLeadService) FindByID(ctx context.Context, leadID utils.SixID) (*models.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *mockLeadService) ListByAgent(ctx context.Context, actor *models.Account) ([]services.LeadWithListing, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.LeadWithListing), args.Error(1)
}

func (m *mockLeadService) ListByBuyer(ctx context.Context, actor *models.Account) ([]services.LeadWithListing, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.LeadWithListing), args.Error(1)
}

func (m *mockLeadService) UpdateStatus(ctx context.Context, actor *models.Account, leadID utils.SixID, status models.LeadStatus) (*models.Lead, error) {
	args := m.Called(ctx, actor, leadID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

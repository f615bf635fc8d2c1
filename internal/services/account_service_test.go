package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"biztech/api/internal/apperr"
	"biztech/api/internal/config"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		PremiumPriceThreshold: 500000,
		PremiumListingFee:     1500,
		FeeCurrencyCode:       "AED",
		VerificationCodeTTL:   24 * time.Hour,
		ResetTokenTTL:         20 * time.Minute,
		JwtSecret:             "test-secret",
		JwtTTL:                time.Hour,
	}
}

func setupAccountService(t *testing.T) (IAccountService, *config.Config) {
	t.Helper()
	database := utils.SetupTestDB(t, "biztech_test_accounts", "accounts", "verification_actions")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	cfg := testConfig()
	return NewAccountService(database, cfg), cfg
}

func adminAccount() *models.Account {
	a := &models.Account{Role: models.RoleAdmin, AccountStatus: models.AccountActive}
	a.GenID()
	return a
}

func registerBuyer(t *testing.T, svc IAccountService, email string) (*models.Account, *models.VerificationAction) {
	t.Helper()
	account, action, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test Buyer",
		Email:    email,
		Password: "Passw0rd",
		Role:     models.RoleBuyer,
	})
	require.NoError(t, err)
	require.NotNil(t, action)
	return account, action
}

func TestRegisterVerifyLoginBuyer(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	account, action := registerBuyer(t, svc, "buyer@example.com")
	assert.Equal(t, models.AccountPending, account.AccountStatus)
	assert.False(t, account.EmailVerified)

	// Login before verification fails with a distinguishable message.
	_, err := svc.Login(ctx, "buyer@example.com", "Passw0rd")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
	assert.Contains(t, apperr.MessageOf(err), "verify")

	// Verification activates buyers immediately.
	verified, err := svc.VerifyEmail(ctx, action.ID.String())
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Equal(t, models.AccountActive, verified.AccountStatus)

	logged, err := svc.Login(ctx, "buyer@example.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, account.ID, logged.ID)
}

func TestRegisterSellerStaysPendingAfterVerify(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, action, err := svc.Register(ctx, RegisterInput{
		Name:             "Test Seller",
		Email:            "seller@example.com",
		Password:         "Passw0rd",
		Role:             models.RoleSeller,
		AgreedCommission: true,
	})
	require.NoError(t, err)

	verified, err := svc.VerifyEmail(ctx, action.ID.String())
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Equal(t, models.AccountPending, verified.AccountStatus, "sellers await admin approval")

	// A verified but unapproved seller can still sign in to see their status.
	_, err = svc.Login(ctx, "seller@example.com", "Passw0rd")
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com", Password: "Passw0rd", Role: models.RoleAdmin})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "admin self-registration refused")

	_, _, err = svc.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com", Password: "weak", Role: models.RoleBuyer})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, _, err = svc.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com", Password: "Passw0rd", Role: models.RoleSeller, AgreedCommission: false})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "sellers must agree to commission")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	registerBuyer(t, svc, "dup@example.com")
	_, _, err := svc.Register(ctx, RegisterInput{
		Name:     "Second",
		Email:    "dup@example.com",
		Password: "Passw0rd",
		Role:     models.RoleBuyer,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestVerificationCodeSingleUse(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, action := registerBuyer(t, svc, "once@example.com")
	_, err := svc.VerifyEmail(ctx, action.ID.String())
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, action.ID.String())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestVerifyEmailBadCode(t *testing.T) {
	svc, _ := setupAccountService(t)

	_, err := svc.VerifyEmail(context.Background(), "AAAAAAAAAA")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))

	_, err = svc.VerifyEmail(context.Background(), "garbage")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, action := registerBuyer(t, svc, "wrongpw@example.com")
	_, err := svc.VerifyEmail(ctx, action.ID.String())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "wrongpw@example.com", "Passw0rd!!wrong")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))

	_, err = svc.Login(ctx, "nobody@example.com", "Passw0rd")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication), "unknown email indistinguishable from bad password")
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, action := registerBuyer(t, svc, "reset@example.com")
	_, err := svc.VerifyEmail(ctx, action.ID.String())
	require.NoError(t, err)

	_, reset, err := svc.RequestPasswordReset(ctx, "reset@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, reset.ID.String(), "NewPassw0rd"))

	_, err = svc.Login(ctx, "reset@example.com", "Passw0rd")
	assert.Error(t, err, "old password no longer works")
	_, err = svc.Login(ctx, "reset@example.com", "NewPassw0rd")
	assert.NoError(t, err)

	// The reset code is single-use.
	err = svc.ResetPassword(ctx, reset.ID.String(), "AnotherPassw0rd1")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	registerBuyer(t, svc, "policy@example.com")
	_, reset, err := svc.RequestPasswordReset(ctx, "policy@example.com")
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, reset.ID.String(), "weak")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSetAccountStatus(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()
	admin := adminAccount()

	seller, _, err := svc.Register(ctx, RegisterInput{
		Name:             "Pending Seller",
		Email:            "approve@example.com",
		Password:         "Passw0rd",
		Role:             models.RoleSeller,
		AgreedCommission: true,
	})
	require.NoError(t, err)

	// Non-admin actors are refused.
	buyer := &models.Account{Role: models.RoleBuyer, AccountStatus: models.AccountActive}
	buyer.GenID()
	_, err = svc.SetAccountStatus(ctx, buyer, seller.ID, models.AccountActive)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	approved, err := svc.SetAccountStatus(ctx, admin, seller.ID, models.AccountActive)
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, approved.AccountStatus)

	// The decision is terminal.
	_, err = svc.SetAccountStatus(ctx, admin, seller.ID, models.AccountRejected)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// Unknown account.
	_, err = svc.SetAccountStatus(ctx, admin, utils.NewSixID(), models.AccountActive)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// Only the two decision statuses are accepted.
	_, err = svc.SetAccountStatus(ctx, admin, seller.ID, models.AccountPending)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateAgent(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()
	admin := adminAccount()

	agent, err := svc.CreateAgent(ctx, admin, "Agent Smith", "agent@example.com", "+971500000000", "AgentPass1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, agent.Role)
	assert.Equal(t, models.AccountActive, agent.AccountStatus)
	assert.True(t, agent.EmailVerified, "agents skip the verification round-trip")

	// Agents can sign in straight away.
	_, err = svc.Login(ctx, "agent@example.com", "AgentPass1")
	assert.NoError(t, err)

	// Non-admins cannot create agents.
	_, err = svc.CreateAgent(ctx, agent, "Another", "a2@example.com", "", "AgentPass1")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

func TestListAccounts(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()
	admin := adminAccount()

	registerBuyer(t, svc, "list1@example.com")
	_, _, err := svc.Register(ctx, RegisterInput{
		Name: "S", Email: "list2@example.com", Password: "Passw0rd",
		Role: models.RoleSeller, AgreedCommission: true,
	})
	require.NoError(t, err)

	sellerRole := models.RoleSeller
	pending := models.AccountPending
	accounts, err := svc.ListAccounts(ctx, admin, &sellerRole, &pending)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "list2@example.com", accounts[0].Email)

	all, err := svc.ListAccounts(ctx, admin, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListAccounts(ctx, nil, nil, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

func TestPurgeExpiredVerifications(t *testing.T) {
	svc, _ := setupAccountService(t)
	ctx := context.Background()

	_, action := registerBuyer(t, svc, "expire@example.com")

	// Backdate the expiry.
	database := utils.SetupTestDB(t, "biztech_test_accounts")
	_, err := database.Collection("verification_actions").UpdateByID(ctx, action.ID,
		bson.M{"$set": bson.M{"expires_at": time.Now().UTC().Add(-time.Hour)}})
	require.NoError(t, err)

	purged, err := svc.PurgeExpiredVerifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = svc.VerifyEmail(ctx, action.ID.String())
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

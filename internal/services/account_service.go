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
	"biztech/api/internal/auth"
	"biztech/api/internal/config"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/policy"
	"biztech/api/internal/utils"
)

// RegisterInput carries a self-registration request. Role must be seller or
// buyer: agents are created by admins and admins are provisioned out of band.
type RegisterInput struct {
	Name             string
	Email            string
	Mobile           string
	Password         string
	Role             models.Role
	FinancialMeans   string // buyer only
	AgreedCommission bool   // seller only
}

// IAccountService defines the interface for account-related operations.
type IAccountService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Account, *models.VerificationAction, error)
	VerifyEmail(ctx context.Context, code string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*models.Account, error)
	RequestPasswordReset(ctx context.Context, email string) (*models.Account, *models.VerificationAction, error)
	ResetPassword(ctx context.Context, code, newPassword string) error
	FindByID(ctx context.Context, accountID utils.SixID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, actor *models.Account, role *models.Role, status *models.AccountStatus) ([]models.Account, error)
	SetAccountStatus(ctx context.Context, actor *models.Account, accountID utils.SixID, status models.AccountStatus) (*models.Account, error)
	CreateAgent(ctx context.Context, actor *models.Account, name, email, mobile, password string) (*models.Account, error)
	PurgeExpiredVerifications(ctx context.Context) (int64, error)
}

const (
	accountsCollection      = "accounts"
	verificationsCollection = "verification_actions"
)

// accountService implements IAccountService.
type accountService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewAccountService creates a new AccountService.
func NewAccountService(database *mongo.Database, cfg *config.Config) IAccountService {
	return &accountService{db: database, cfg: cfg}
}

// Register creates a new unverified account and the email verification code
// for it. Sellers stay pending until an admin approves them even after
// verification; buyers go active as soon as they verify.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*models.Account, *models.VerificationAction, error) {
	if input.Role != models.RoleSeller && input.Role != models.RoleBuyer {
		return nil, nil, apperr.New(apperr.KindValidation, "Role must be seller or buyer")
	}
	if input.Name == "" || input.Email == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "Name and email are required")
	}
	if err := auth.ValidatePasswordPolicy(input.Password); err != nil {
		return nil, nil, err
	}
	if input.Role == models.RoleSeller && !input.AgreedCommission {
		return nil, nil, apperr.New(apperr.KindValidation, "Sellers must agree to the commission terms")
	}

	collection := s.db.Collection(accountsCollection)

	// Friendly pre-check; the unique email index is what actually guarantees
	// this under race.
	count, err := collection.CountDocuments(ctx, bson.M{"email": input.Email, "deleted": false})
	if err != nil {
		return nil, nil, fmt.Errorf("error checking email uniqueness for %s: %w", input.Email, err)
	}
	if count > 0 {
		return nil, nil, apperr.New(apperr.KindConflict, "An account with this email already exists")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password for %s: %w", input.Email, err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		Name:          input.Name,
		Email:         input.Email,
		Mobile:        input.Mobile,
		PasswordHash:  hash,
		Role:          input.Role,
		AccountStatus: models.AccountPending,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
		Deleted:       false,
	}
	switch input.Role {
	case models.RoleBuyer:
		if input.FinancialMeans != "" {
			means := input.FinancialMeans
			account.FinancialMeans = &means
		}
	case models.RoleSeller:
		agreed := input.AgreedCommission
		account.AgreedCommission = &agreed
	}

	doc, err := db.InsertOne(ctx, collection, account)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, nil, apperr.New(apperr.KindConflict, "An account with this email already exists")
		}
		return nil, nil, fmt.Errorf("error inserting new account for %s: %w", input.Email, err)
	}
	account = doc.(*models.Account)

	action, err := s.createVerification(ctx, account.ID, models.VerificationEmail, s.cfg.VerificationCodeTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create verification code for account %s: %w", account.ID.String(), err)
	}

	return account, action, nil
}

// VerifyEmail redeems an email verification code. Buyers are activated on the
// spot; sellers remain pending for admin approval.
func (s *accountService) VerifyEmail(ctx context.Context, code string) (*models.Account, error) {
	action, err := s.redeemVerification(ctx, code, models.VerificationEmail)
	if err != nil {
		return nil, err
	}

	account, err := s.FindByID(ctx, action.AccountID)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"email_verified": true,
		"updated_at":     time.Now().UTC(),
	}
	if account.Role == models.RoleBuyer && account.AccountStatus == models.AccountPending {
		set["account_status"] = models.AccountActive
	}

	result, err := s.db.Collection(accountsCollection).UpdateByID(ctx, account.ID, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error verifying account %s: %w", account.ID.String(), err)
	}
	if result.MatchedCount == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "Account %s not found", account.ID.String())
	}

	return s.FindByID(ctx, account.ID)
}

// Login checks the credentials and returns the account. The "verify your
// email" failure is deliberately distinguishable from a wrong password so the
// client can branch into the verification flow.
func (s *accountService) Login(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindAuthentication, "Invalid email or password")
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperr.New(apperr.KindAuthentication, "Invalid email or password")
	}
	if !account.EmailVerified {
		return nil, apperr.New(apperr.KindAuthentication, "Please verify your email before signing in")
	}
	if account.AccountStatus == models.AccountRejected {
		return nil, apperr.New(apperr.KindAuthorization, "This account has been rejected")
	}

	return account, nil
}

// RequestPasswordReset issues a single-use reset code for the account with the
// given email.
func (s *accountService) RequestPasswordReset(ctx context.Context, email string) (*models.Account, *models.VerificationAction, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	action, err := s.createVerification(ctx, account.ID, models.VerificationPasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reset code for account %s: %w", account.ID.String(), err)
	}
	return account, action, nil
}

// ResetPassword redeems a reset code and replaces the credential. The code is
// invalidated whether or not it has expired by the time of a second attempt.
func (s *accountService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := auth.ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}

	action, err := s.redeemVerification(ctx, code, models.VerificationPasswordReset)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password for account %s: %w", action.AccountID.String(), err)
	}

	update := bson.M{"$set": bson.M{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(accountsCollection).UpdateByID(ctx, action.AccountID, update)
	if err != nil {
		return fmt.Errorf("error resetting password for account %s: %w", action.AccountID.String(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.Newf(apperr.KindNotFound, "Account %s not found", action.AccountID.String())
	}
	return nil
}

// FindByID finds a non-deleted account by its ID.
func (s *accountService) FindByID(ctx context.Context, accountID utils.SixID) (*models.Account, error) {
	var account models.Account
	filter := bson.M{"_id": accountID, "deleted": false}

	err := s.db.Collection(accountsCollection).FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Newf(apperr.KindNotFound, "Account %s not found", accountID.String())
		}
		return nil, fmt.Errorf("error finding account by ID %s: %w", accountID.String(), err)
	}
	return &account, nil
}

// FindByEmail finds a non-deleted account by its email address.
func (s *accountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	filter := bson.M{"email": email, "deleted": false}

	err := s.db.Collection(accountsCollection).FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Newf(apperr.KindNotFound, "No account for email %s", email)
		}
		return nil, fmt.Errorf("error finding account by email %s: %w", email, err)
	}
	return &account, nil
}

// ListAccounts returns accounts matching the optional role and status filters.
// Admin review queues use this with role=seller, status=pending.
func (s *accountService) ListAccounts(ctx context.Context, actor *models.Account, role *models.Role, status *models.AccountStatus) ([]models.Account, error) {
	if !policy.CanApprove(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}

	filter := bson.M{"deleted": false}
	if role != nil {
		filter["role"] = *role
	}
	if status != nil {
		filter["account_status"] = *status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(accountsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

// SetAccountStatus approves or rejects a pending account. Terminal statuses
// are not revisited, and admin accounts are never touched this way.
func (s *accountService) SetAccountStatus(ctx context.Context, actor *models.Account, accountID utils.SixID, status models.AccountStatus) (*models.Account, error) {
	if !policy.CanApprove(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}
	if status != models.AccountActive && status != models.AccountRejected {
		return nil, apperr.Newf(apperr.KindValidation, "Invalid target status %q", status)
	}

	collection := s.db.Collection(accountsCollection)
	filter := bson.M{
		"_id":            accountID,
		"deleted":        false,
		"account_status": models.AccountPending,
		"role":           bson.M{"$ne": models.RoleAdmin},
	}
	update := bson.M{"$set": bson.M{
		"account_status": status,
		"updated_at":     time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Account
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Diagnose: unknown account vs already-decided account.
			if _, findErr := s.FindByID(ctx, accountID); findErr != nil {
				return nil, findErr
			}
			return nil, apperr.Newf(apperr.KindConflict, "Account %s is not awaiting review", accountID.String())
		}
		return nil, fmt.Errorf("failed to set status of account %s: %w", accountID.String(), err)
	}
	return &updated, nil
}

// CreateAgent creates a directly active agent account. Agents never
// self-register and need no email verification round-trip.
func (s *accountService) CreateAgent(ctx context.Context, actor *models.Account, name, email, mobile, password string) (*models.Account, error) {
	if !policy.CanCreateAgent(actor) {
		return nil, apperr.New(apperr.KindAuthorization, "Administrator privileges required")
	}
	if name == "" || email == "" {
		return nil, apperr.New(apperr.KindValidation, "Name and email are required")
	}
	if err := auth.ValidatePasswordPolicy(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for agent %s: %w", email, err)
	}

	now := time.Now().UTC()
	doc, err := db.InsertOne(ctx, s.db.Collection(accountsCollection), &models.Account{
		Name:          name,
		Email:         email,
		Mobile:        mobile,
		PasswordHash:  hash,
		Role:          models.RoleAgent,
		AccountStatus: models.AccountActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
		Deleted:       false,
	})
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.New(apperr.KindConflict, "An account with this email already exists")
		}
		return nil, fmt.Errorf("error inserting agent account for %s: %w", email, err)
	}
	return doc.(*models.Account), nil
}

// PurgeExpiredVerifications soft-deletes verification codes past their expiry.
// Called from the background cleanup task.
func (s *accountService) PurgeExpiredVerifications(ctx context.Context) (int64, error) {
	filter := bson.M{
		"deleted":    false,
		"expires_at": bson.M{"$lt": time.Now().UTC()},
	}
	result, err := s.db.Collection(verificationsCollection).UpdateMany(ctx, filter, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired verifications: %w", err)
	}
	return result.ModifiedCount, nil
}

// createVerification inserts a one-time code document for the account.
func (s *accountService) createVerification(ctx context.Context, accountID utils.SixID, vType models.VerificationType, ttl time.Duration) (*models.VerificationAction, error) {
	now := time.Now().UTC()
	doc, err := db.InsertOne(ctx, s.db.Collection(verificationsCollection), &models.VerificationAction{
		AccountID: accountID,
		Type:      vType,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Executed:  nil,
		Deleted:   false,
	})
	if err != nil {
		return nil, err
	}
	return doc.(*models.VerificationAction), nil
}

// redeemVerification validates a one-time code and marks it executed. The
// conditional update makes redemption single-use even under concurrent
// attempts with the same code.
func (s *accountService) redeemVerification(ctx context.Context, code string, vType models.VerificationType) (*models.VerificationAction, error) {
	actionID, err := utils.ParseSixID(code)
	if err != nil || actionID.IsZero() {
		return nil, apperr.New(apperr.KindAuthentication, "This code is invalid, expired, or already used")
	}

	filter := bson.M{
		"_id":        actionID,
		"type":       vType,
		"executed":   nil,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
		"deleted":    false,
	}
	update := bson.M{"$set": bson.M{"executed": time.Now().UTC()}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var action models.VerificationAction
	err = s.db.Collection(verificationsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&action)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.KindAuthentication, "This code is invalid, expired, or already used")
		}
		return nil, fmt.Errorf("database error redeeming verification code: %w", err)
	}
	return &action, nil
}

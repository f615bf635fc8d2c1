package handlers

import (
	"context"
	"log"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"biztech/api/internal/apperr"
	"biztech/api/internal/auth"
	"biztech/api/internal/config"
	"biztech/api/internal/models"
	"biztech/api/internal/services"
	"biztech/api/internal/tasks"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthHandler handles registration, verification and session endpoints.
type AuthHandler struct {
	cfg            *config.Config
	accountService services.IAccountService
	taskClient     *asynq.Client
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg *config.Config, accountService services.IAccountService, taskClient *asynq.Client) *AuthHandler {
	return &AuthHandler{cfg: cfg, accountService: accountService, taskClient: taskClient}
}

type registerRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required"`
	Mobile           string `json:"mobile"`
	Password         string `json:"password" binding:"required"`
	Role             string `json:"role" binding:"required"`
	FinancialMeans   string `json:"financialMeans"`
	AgreedCommission bool   `json:"agreedCommission"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	if !emailRegex.MatchString(req.Email) {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid email address"))
		return
	}

	account, action, err := h.accountService.Register(c.Request.Context(), services.RegisterInput{
		Name:             req.Name,
		Email:            req.Email,
		Mobile:           req.Mobile,
		Password:         req.Password,
		Role:             models.Role(req.Role),
		FinancialMeans:   req.FinancialMeans,
		AgreedCommission: req.AgreedCommission,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.enqueueEmail(c.Request.Context(), tasks.EmailTaskPayload{
		To:         account.Email,
		TemplateID: tasks.TemplateVerifyEmail,
		Data: map[string]string{
			"name": account.Name,
			"code": action.ID.String(),
			"ttl":  h.cfg.VerificationCodeTTL.String(),
		},
	})

	respondOK(c, http.StatusCreated, gin.H{
		"id":    account.ID,
		"email": account.Email,
		"role":  account.Role,
	})
}

// VerifyEmailByToken handles PUT /auth/verifyemail/:token. Buyers get a
// session token straight away; sellers are told to wait for approval.
func (h *AuthHandler) VerifyEmailByToken(c *gin.Context) {
	h.verifyEmail(c, c.Param("token"))
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyEmailByOTP handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmailByOTP(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	h.verifyEmail(c, req.OTP)
}

func (h *AuthHandler) verifyEmail(c *gin.Context, code string) {
	account, err := h.accountService.VerifyEmail(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{
		"accountStatus": account.AccountStatus,
		"role":          account.Role,
	}
	if account.AccountStatus == models.AccountActive {
		token, err := auth.GenerateJWT(account.ID, account.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		data["token"] = token
	}
	respondOK(c, http.StatusOK, data)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	account, err := h.accountService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(account.ID, account.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"token": token,
		"account": gin.H{
			"id":            account.ID,
			"name":          account.Name,
			"email":         account.Email,
			"role":          account.Role,
			"accountStatus": account.AccountStatus,
		},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword handles POST /auth/forgotpassword. The response does not
// reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	account, action, err := h.accountService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		respondError(c, err)
		return
	}
	if err == nil {
		h.enqueueEmail(c.Request.Context(), tasks.EmailTaskPayload{
			To:         account.Email,
			TemplateID: tasks.TemplatePasswordReset,
			Data: map[string]string{
				"name": account.Name,
				"code": action.ID.String(),
			},
		})
	}

	respondOK(c, http.StatusOK, gin.H{"message": "If the email exists, a reset code has been sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ResetPassword handles PUT /auth/resetpassword/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	if err := h.accountService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Password updated"})
}

// enqueueEmail queues an email without failing the request; delivery is
// asynchronous and retried by the task server.
func (h *AuthHandler) enqueueEmail(ctx context.Context, payload tasks.EmailTaskPayload) {
	if h.taskClient == nil {
		return
	}
	if err := tasks.EnqueueEmail(ctx, h.taskClient, payload); err != nil {
		log.Printf("WARN: failed to enqueue %s email to %s: %v", payload.TemplateID, payload.To, err)
	}
}

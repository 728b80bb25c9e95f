package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/transport/http/middleware"
	"github.com/remodely/auth-service/internal/usecase"
)

// AuthHandler exposes registration, login, and phone verification endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	verification *usecase.PhoneVerificationService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, verification *usecase.PhoneVerificationService) *AuthHandler {
	return &AuthHandler{auth: auth, verification: verification}
}

// AuthRouteOptions carries optional middleware applied ahead of specific
// endpoint groups.
type AuthRouteOptions struct {
	// VerifyMiddlewares run before verify-phone and resend-code, after
	// authentication (per-account ceiling).
	VerifyMiddlewares []gin.HandlerFunc
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, opts AuthRouteOptions) {
	r.POST("/register", h.register)
	r.POST("/login", h.login)

	authed := r.Group("", middleware.RequireAuth(h.auth))
	authed.POST("/verify-phone", withChain(opts.VerifyMiddlewares, h.verifyPhone)...)
	authed.POST("/resend-code", withChain(opts.VerifyMiddlewares, h.resendCode)...)
	authed.GET("/profile", h.profile)
	authed.POST("/logout", h.logout)
	authed.GET("/validate-token", h.validateToken)
}

func withChain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := append([]gin.HandlerFunc{}, middlewares...)
	return append(chain, handler)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}
	if !req.AgreeToTerms {
		c.JSON(http.StatusBadRequest, NewErrorResponse("terms of service must be accepted"))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		UserType: domain.UserType(req.UserType),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusBadRequest, Message: "email already registered"},
			{Err: usecase.ErrPhoneTaken, Status: http.StatusBadRequest, Message: "phone already registered"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrInvalidUserType, Status: http.StatusBadRequest, Message: "unknown user type"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "account created, verification code sent",
		"user":    NewUserView(result.User),
		"token":   result.Token,
		"expiresIn": int64(result.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    NewUserView(result.User),
		"token":   result.Token,
		"expiresIn": int64(result.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) verifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}

	userID := middleware.AuthenticatedUserID(c)
	if err := h.verification.Verify(c.Request.Context(), userID, req.Phone, req.Code); err != nil {
		if errors.Is(err, usecase.ErrPhoneAlreadyVerified) {
			c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "phone already verified"})
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPhoneMismatch, Status: http.StatusBadRequest, Message: "phone number does not match account"},
			{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "verification code invalid"},
			{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusBadRequest, Message: "verification code expired"},
			{Err: usecase.ErrNoVerificationPending, Status: http.StatusBadRequest, Message: "no verification pending"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "phone verified"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "phone verified",
		"user":    NewUserView(*user),
	})
}

func (h *AuthHandler) resendCode(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	if err := h.verification.ResendCode(c.Request.Context(), userID); err != nil {
		if errors.Is(err, usecase.ErrPhoneAlreadyVerified) {
			c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "phone already verified"})
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrSMSDeliveryFailed, Status: http.StatusBadGateway, Message: "could not deliver verification code"},
		}, http.StatusInternalServerError, "resend failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "verification code sent"})
}

func (h *AuthHandler) profile(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse("user not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    NewUserView(*user),
	})
}

// logout acknowledges the request; token disposal is the client's job.
// Server-side revocation would need a denylist keyed by token id.
func (h *AuthHandler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "logged out"})
}

// IntrospectRequest carries a token presented by a sibling service.
type IntrospectRequest struct {
	Token string `json:"token" binding:"required"`
}

// Introspect resolves a user token on behalf of another backend service.
// The caller authenticates with the shared service secret, not the token
// being inspected.
func (h *AuthHandler) Introspect(c *gin.Context) {
	var req IntrospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request payload", err.Error()))
		return
	}

	user, claims, err := h.auth.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"active":  false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"active":   true,
		"userId":   user.ID,
		"userType": claims.UserType,
	})
}

func (h *AuthHandler) validateToken(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid or expired token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"userId":   user.ID,
		"userType": user.UserType,
	})
}

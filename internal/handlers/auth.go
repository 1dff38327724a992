package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/middleware"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type AuthHandler struct {
	manager      *engine.Manager
	jwtService   *auth.JWTService
	tokenService *auth.TokenService
}

func NewAuthHandler(manager *engine.Manager, jwtService *auth.JWTService, tokenService *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		manager:      manager,
		jwtService:   jwtService,
		tokenService: tokenService,
	}
}

func (h *AuthHandler) Register(c *drift.Context) {
	var req dto.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	ctx := context.Background()

	handle, err := h.manager.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInUse):
			c.BadRequest(err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			c.BadRequest(err.Error())
		default:
			c.InternalServerError("failed to create account")
		}
		return
	}

	h.issueTokens(c, ctx, handle.ID, handle.Email, 201)
}

func (h *AuthHandler) Login(c *drift.Context) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	ctx := context.Background()

	handle, err := h.manager.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.Unauthorized(err.Error())
			return
		}
		c.InternalServerError("failed to sign in")
		return
	}

	h.issueTokens(c, ctx, handle.ID, handle.Email, 200)
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	tokenHash := auth.HashToken(req.RefreshToken)
	ctx := context.Background()

	storedUserID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedUserID != userID {
		c.Unauthorized("refresh token not found or expired")
		return
	}

	eng, err := h.manager.Engine(ctx, userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	if err := h.tokenService.RevokeRefreshToken(ctx, tokenHash); err != nil {
		c.InternalServerError("failed to revoke old token")
		return
	}

	h.issueTokens(c, ctx, userID, eng.User().Email, 200)
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := context.Background()

	if req.RefreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(ctx, auth.HashToken(req.RefreshToken))
	}

	if userID := middleware.GetUserID(c); userID != "" {
		_ = h.manager.Logout(ctx, userID)
	}

	_ = c.JSON(200, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.Unauthorized("not authenticated")
		return
	}

	ctx := context.Background()

	if err := h.tokenService.RevokeAllUserTokens(ctx, userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}
	_ = h.manager.Logout(ctx, userID)

	_ = c.JSON(200, map[string]string{"message": "all sessions logged out"})
}

func (h *AuthHandler) issueTokens(c *drift.Context, ctx context.Context, userID, email string, status int) {
	tokenPair, err := h.jwtService.GenerateTokenPair(userID, email)
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	tokenHash := auth.HashToken(tokenPair.RefreshToken)
	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(ctx, userID, tokenHash, expiresAt); err != nil {
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(status, dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

package handlers

import (
	"context"
	"errors"

	"github.com/lberthe/kanbo-api/internal/middleware"
	"github.com/lberthe/kanbo-api/internal/models"
	"github.com/lberthe/kanbo-api/internal/store"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type UserHandler struct {
	store store.Store
}

func NewUserHandler(st store.Store) *UserHandler {
	return &UserHandler{store: st}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.Unauthorized("not authenticated")
		return
	}

	doc, err := h.store.Get(context.Background(), store.CollectionUsers, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.NotFound("user not found")
			return
		}
		c.InternalServerError("failed to load user")
		return
	}

	var user models.User
	if err := doc.Decode(&user); err != nil {
		c.InternalServerError("failed to load user")
		return
	}
	user.ID = doc.ID

	_ = c.JSON(200, userResponse(user))
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	patch := map[string]any{}
	if req.DisplayName != nil {
		patch["displayName"] = *req.DisplayName
	}
	if req.Avatar != nil {
		patch["avatar"] = *req.Avatar
	}
	if req.Preferences != nil {
		patch["preferences"] = map[string]any{
			"theme":         req.Preferences.Theme,
			"language":      req.Preferences.Language,
			"notifications": req.Preferences.Notifications,
		}
	}
	if len(patch) == 0 {
		c.BadRequest("nothing to update")
		return
	}

	if err := h.store.Update(context.Background(), store.CollectionUsers, userID, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.NotFound("user not found")
			return
		}
		c.InternalServerError("failed to update user")
		return
	}

	h.GetMe(c)
}

func userResponse(u models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Role:        u.Role,
		Preferences: dto.PreferencesResponse{
			Theme:         u.Preferences.Theme,
			Language:      u.Preferences.Language,
			Notifications: u.Preferences.Notifications,
		},
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

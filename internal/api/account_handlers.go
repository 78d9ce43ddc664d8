package api

import (
	"net/http"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/service"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// signUp registers an account under role
func (h *Handler) signUp(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}

		session, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	}
}

// signIn opens a session for an account holding role
func (h *Handler) signIn(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}

		session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password, role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), currentClaims(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in service.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), currentUserID(c), currentRole(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// uploadPhoto expects a multipart form with a "photo" file
func (h *Handler) uploadPhoto(c *gin.Context) {
	upload, closeUpload, ok := formUpload(c, "photo")
	if !ok {
		return
	}
	defer closeUpload()

	obj, err := h.profiles.UploadPhoto(c.Request.Context(), currentUserID(c), currentRole(c), *upload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, obj)
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/utils"
)

type UsersController struct {
	users   UserService
	queries QueryService
}

func NewUsersController(users UserService, queries QueryService) *UsersController {
	return &UsersController{users: users, queries: queries}
}

// GET /api/v1/users/current-user
func (u *UsersController) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := u.users.Current(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "User fetched successfully")
	}
}

// PATCH /api/v1/users/update-account
func (u *UsersController) UpdateAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateAccountDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		user, err := u.users.UpdateAccount(c.Request.Context(), middleware.CurrentUserID(c), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Account details updated successfully")
	}
}

// PATCH /api/v1/users/avatar
func (u *UsersController) UpdateAvatar() gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, _ := c.FormFile("avatar")
		user, err := u.users.UpdateAvatar(c.Request.Context(), middleware.CurrentUserID(c), fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Avatar image updated successfully")
	}
}

// PATCH /api/v1/users/cover-image
func (u *UsersController) UpdateCoverImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, _ := c.FormFile("coverImage")
		user, err := u.users.UpdateCoverImage(c.Request.Context(), middleware.CurrentUserID(c), fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, user, "Cover image updated successfully")
	}
}

// GET /api/v1/users/c/:username
func (u *UsersController) ChannelProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := u.queries.ChannelProfile(c.Request.Context(), c.Param("username"), middleware.CurrentUserID(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, profile, "User channel fetched successfully")
	}
}

// GET /api/v1/users/history
func (u *UsersController) WatchHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		videos, err := u.queries.WatchHistory(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, videos, "Watch history fetched successfully")
	}
}

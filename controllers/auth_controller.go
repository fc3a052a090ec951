package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
)

type AuthController struct {
	users    UserService
	sessions SessionService
	cookies  utils.CookieOptions
}

func NewAuthController(users UserService, sessions SessionService, cookies utils.CookieOptions) *AuthController {
	return &AuthController{users: users, sessions: sessions, cookies: cookies}
}

type sessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// POST /api/v1/users/register
func (a *AuthController) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		user, err := a.users.Register(c.Request.Context(), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusCreated, user, "User registered successfully")
	}
}

// POST /api/v1/users/login
func (a *AuthController) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		user, tokens, err := a.users.Login(c.Request.Context(), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		a.setCookies(c, tokens)
		utils.Respond(c, http.StatusOK, sessionResponse{
			User:         &user,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		}, "User logged in successfully")
	}
}

// POST /api/v1/users/logout
func (a *AuthController) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.users.Logout(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.ClearAuthCookies(c, a.cookies)
		utils.Respond(c, http.StatusOK, gin.H{}, "User logged out")
	}
}

// POST /api/v1/users/refresh-token
// The refresh token is read from the cookie, or from the JSON body.
func (a *AuthController) Refresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(utils.RefreshTokenCookie)
		if token == "" {
			var body dto.RefreshDTO
			_ = c.ShouldBindJSON(&body)
			token = strings.TrimSpace(body.RefreshToken)
		}
		if token == "" {
			utils.RespondError(c, apierror.UnauthorizedError("unauthorized request", nil))
			return
		}

		tokens, err := a.sessions.Rotate(c.Request.Context(), token)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		a.setCookies(c, tokens)
		utils.Respond(c, http.StatusOK, sessionResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		}, "Access token refreshed")
	}
}

// POST /api/v1/users/change-password
func (a *AuthController) ChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		err := a.sessions.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), body.OldPassword, body.NewPassword)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
	}
}

func (a *AuthController) setCookies(c *gin.Context, tokens models.SessionTokens) {
	utils.SetAuthCookies(c, a.cookies, tokens.AccessToken, tokens.AccessExpiresAt, tokens.RefreshToken, tokens.RefreshExpiresAt)
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const userKey = "user"

// Authenticator resolves an access token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// AuthMiddleware rejects requests without a valid access token, read from the
// accessToken cookie or the Authorization header.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			utils.RespondError(c, apierror.UnauthorizedError("unauthorized request", nil))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := accessToken(c); token != "" {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(utils.AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// CurrentUser returns the user attached by the auth middlewares.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// CurrentUserID is the id of the authenticated user, or the nil id for
// anonymous requests.
func CurrentUserID(c *gin.Context) bson.ObjectID {
	user, ok := CurrentUser(c)
	if !ok {
		return bson.NilObjectID
	}
	return user.ID
}

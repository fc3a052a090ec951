package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type CookieOptions struct {
	Secure bool
	Domain string
}

func SetAuthCookies(c *gin.Context, opts CookieOptions, accessToken string, accessExp time.Time, refreshToken string, refreshExp time.Time) {
	sameSite := http.SameSiteLaxMode
	if opts.Secure {
		sameSite = http.SameSiteNoneMode // for cross-site
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  accessExp,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: sameSite,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  refreshExp,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: sameSite,
	})
}

func ClearAuthCookies(c *gin.Context, opts CookieOptions) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", opts.Domain, opts.Secure, true)
}

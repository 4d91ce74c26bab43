package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/account"
	"laundry/internal/middleware"
)

const (
	RefreshCookie     = "refreshToken"
	refreshCookiePath = "/auth"
)

// CookieConfig controls the session cookies set on login.
type CookieConfig struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func setAuthCookies(c *gin.Context, cfg CookieConfig, res *account.AuthResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, res.AccessToken, int(cfg.AccessTTL.Seconds()), "/", cfg.Domain, cfg.Secure, true)
	if res.RefreshToken != "" {
		c.SetCookie(RefreshCookie, res.RefreshToken, int(cfg.RefreshTTL.Seconds()), refreshCookiePath, cfg.Domain, cfg.Secure, true)
	}
}

func clearAuthCookies(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", cfg.Domain, cfg.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, refreshCookiePath, cfg.Domain, cfg.Secure, true)
}

func authBody(res *account.AuthResult) gin.H {
	return gin.H{
		"token":     res.AccessToken,
		"expiresIn": res.ExpiresIn,
		"user":      res.User,
	}
}

func Register(accounts *account.Service, cookies CookieConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req account.RegisterInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := accounts.Register(ctx, req, c.ClientIP())
		if err != nil {
			respondError(c, log, err)
			return
		}

		setAuthCookies(c, cookies, res)
		respondOK(c, http.StatusCreated, authBody(res))
	}
}

func Login(accounts *account.Service, cookies CookieConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req account.LoginInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := accounts.Login(ctx, req, c.ClientIP())
		if err != nil {
			respondError(c, log, err)
			return
		}

		setAuthCookies(c, cookies, res)
		respondOK(c, http.StatusOK, authBody(res))
	}
}

// refreshTokenFrom reads the refresh token from its cookie, or from the
// JSON body for clients that do not keep cookies.
func refreshTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(RefreshCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return cookie
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func Refresh(accounts *account.Service, cookies CookieConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := accounts.Refresh(ctx, refreshTokenFrom(c), c.ClientIP())
		if err != nil {
			clearAuthCookies(c, cookies)
			respondError(c, log, err)
			return
		}

		setAuthCookies(c, cookies, res)
		respondOK(c, http.StatusOK, authBody(res))
	}
}

func Logout(accounts *account.Service, cookies CookieConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if err := accounts.Logout(ctx, refreshTokenFrom(c), c.ClientIP()); err != nil {
			respondError(c, log, err)
			return
		}

		clearAuthCookies(c, cookies)
		respondOK(c, http.StatusOK, gin.H{"message": "logged out"})
	}
}

func ChangePassword(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req account.ChangePasswordInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := accounts.ChangePassword(ctx, userID, req); err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"message": "password updated"})
	}
}

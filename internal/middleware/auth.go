package middleware

import (
	"net/http"
	"strings"
	"time"

	"hrportal/internal/auth"
	"hrportal/internal/model"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Auth verifies access tokens and gates routes by role
type Auth struct {
	tokens        *auth.Tokens
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuth(tokens *auth.Tokens, refreshTTL time.Duration, secureCookies bool) *Auth {
	return &Auth{tokens: tokens, refreshTTL: refreshTTL, secureCookies: secureCookies}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(a.tokens.TTL().Seconds()), "/", "", a.secureCookies, true)
	c.SetCookie("refresh_token", refreshToken, int(a.refreshTTL.Seconds()), "/", "", a.secureCookies, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", a.secureCookies, true)
	c.SetCookie("refresh_token", "", -1, "/", "", a.secureCookies, true)
}

// RequireRole validates the access token and checks the caller's role is one of
// allowedRoles. With no roles listed any authenticated caller passes.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		identity, err := a.tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if identity.Role == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the caller set by RequireRole, or the zero identity
func IdentityFrom(c *gin.Context) model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}
	}
	identity, _ := v.(model.Identity)
	return identity
}

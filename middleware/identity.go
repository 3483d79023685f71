package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/models"
)

const (
	IdentityContextKey  = "shopper"
	jwtSecretContextKey = "shopper_jwt_secret"

	HeaderGuestID = "X-Guest-ID"
	guestCookie   = "guest_id"
	tokenCookie   = "token"
)

// Shopper is the identity an incoming request acts for. Key is the session it may use:
// "user:<id>" only for a token whose signature was verified, otherwise a key derived from the
// token itself, or "guest:<id>" without a token.
type Shopper struct {
	identity.Static
	UserID string
	Tier   models.Tier
	Key    string
}

// ResolveShopper works out the Shopper for a token and guest id. With a secret, an invalid
// token is an error. Without one, claims are read for display only and never pick the session.
func ResolveShopper(token, guest, jwtSecret string) (Shopper, error) {
	shopper := Shopper{
		Static: identity.Static{BearerToken: token, Guest: guest},
		Tier:   models.TierStandard,
	}
	if token == "" {
		shopper.Key = identity.Key(shopper.Static, "")
		return shopper, nil
	}

	claims, err := identity.ParseClaims(token, jwtSecret)
	switch {
	case err == nil:
		shopper.UserID = claims.UserID
		shopper.Tier = models.TierFromRoles(claims.Roles)
	case jwtSecret != "":
		return Shopper{}, err
	}
	if jwtSecret != "" {
		shopper.Key = identity.Key(shopper.Static, shopper.UserID)
	} else {
		shopper.Key = identity.TokenKey(token)
	}
	return shopper, nil
}

// IdentityMiddleware resolves the bearer token and guest id of the request. A guest id is
// generated when the caller has none and echoed back so the caller can keep it. With a secret
// configured, a token that fails verification is rejected.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			if v, err := c.Cookie(tokenCookie); err == nil {
				token = v
			}
		}

		guest := c.GetHeader(HeaderGuestID)
		if guest == "" {
			if v, err := c.Cookie(guestCookie); err == nil && v != "" {
				guest = v
			}
		}
		if guest == "" {
			guest = identity.NewGuestID()
		}
		c.Header(HeaderGuestID, guest)

		shopper, err := ResolveShopper(token, guest, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: invalid token"})
			return
		}

		c.Set(IdentityContextKey, shopper)
		c.Set(jwtSecretContextKey, jwtSecret)
		c.Next()
	}
}

// SignedInShopper resolves the shopper the current request becomes once it holds token,
// using the same rules as IdentityMiddleware.
func SignedInShopper(c *gin.Context, token string) (Shopper, error) {
	current, err := GetShopper(c)
	if err != nil {
		return Shopper{}, err
	}
	return ResolveShopper(token, current.Guest, c.GetString(jwtSecretContextKey))
}

// GetShopper returns the identity set by IdentityMiddleware.
func GetShopper(c *gin.Context) (Shopper, error) {
	val, exists := c.Get(IdentityContextKey)
	if !exists {
		return Shopper{}, errors.New("shopper not found in context")
	}
	shopper, ok := val.(Shopper)
	if !ok {
		return Shopper{}, errors.New("shopper has invalid type in context")
	}
	return shopper, nil
}

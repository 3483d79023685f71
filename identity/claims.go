package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is what the storefront needs from a store API token.
type Claims struct {
	UserID string
	Roles  []string
}

var ErrInvalidToken = errors.New("invalid token")

// ParseClaims reads the user id and roles from a bearer token. With an empty secret the
// signature is not checked; the store API remains the authority on the token's validity.
func ParseClaims(token, secret string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	out := &Claims{UserID: firstString(claims, "userId", "id", "_id", "sub")}
	if out.UserID == "" {
		return nil, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}
	switch roles := claims["roles"].(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	case string:
		out.Roles = strings.Split(roles, ",")
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		out.Roles = append(out.Roles, role)
	}
	return out, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

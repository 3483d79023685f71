package models

// Tier is the customer pricing tier
type Tier string

const (
	TierStandard Tier = "standard"
	TierVIP      Tier = "vip"
)

// RoleVIP is the role that grants VIP pricing
const RoleVIP = "vip"

// TierFromRoles derives the pricing tier from a role set.
func TierFromRoles(roles []string) Tier {
	for _, r := range roles {
		if r == RoleVIP {
			return TierVIP
		}
	}
	return TierStandard
}

// User is the authenticated storefront user
type User struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	IsActive *bool    `json:"isActive,omitempty"`
}

// Tier returns the pricing tier of the user. A nil user is a standard customer.
func (u *User) Tier() Tier {
	if u == nil {
		return TierStandard
	}
	return TierFromRoles(u.Roles)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProfileUpdate is the body of PUT /auth/me. An empty password keeps the current one.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// The admin surface (batch approval, settlement processing, reconciliation)
// is the only authenticated surface; rider-facing payment initiation is
// authenticated upstream by the app backend and arrives with an owner id.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleShop  Role = "SHOP"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) IsShop() bool { return p.Role == RoleShop }

// Actor is the identifier recorded on freezes and cancellations.
func (p Principal) Actor() string { return p.UserID.String() }

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload issued by the identity service.
type Claims struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(raw string) (model.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userRaw := claims.UserID
	if userRaw == "" {
		userRaw = claims.Subject
	}
	userID, err := uuid.Parse(userRaw)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: user_id", ErrInvalidToken)
	}

	principal := model.Principal{UserID: userID, Role: model.Role(strings.ToUpper(claims.Role))}
	switch principal.Role {
	case model.RoleAdmin:
	case model.RoleShop:
		orgID, err := uuid.Parse(claims.OrgID)
		if err != nil {
			return model.Principal{}, fmt.Errorf("%w: org_id", ErrInvalidToken)
		}
		principal.OrgID = orgID
	default:
		return model.Principal{}, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return principal, nil
}

// Sign issues a token for claims. The billing service only verifies tokens;
// Sign exists for tooling and tests.
func (p *Parser) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/model"
)

func TestParseShopToken(t *testing.T) {
	p := NewParser("secret")
	userID, shopID := uuid.New(), uuid.New()
	token, err := p.Sign(Claims{
		UserID: userID.String(),
		OrgID:  shopID.String(),
		Role:   "shop",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	principal, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{UserID: userID, OrgID: shopID, Role: model.RoleShop}, principal)
}

func TestParseAdminTokenFromSubject(t *testing.T) {
	p := NewParser("secret")
	userID := uuid.New()
	token, err := p.Sign(Claims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}})
	require.NoError(t, err)

	principal, err := p.Parse(token)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())
	assert.Equal(t, userID, principal.UserID)
}

func TestParseRejectsBadTokens(t *testing.T) {
	p := NewParser("secret")
	valid := Claims{UserID: uuid.NewString(), Role: "ADMIN"}

	other, err := NewParser("other").Sign(valid)
	require.NoError(t, err)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expiredToken, err := p.Sign(expired)
	require.NoError(t, err)

	noRole := valid
	noRole.Role = "DRIVER"
	noRoleToken, err := p.Sign(noRole)
	require.NoError(t, err)

	shopNoOrg := valid
	shopNoOrg.Role = "SHOP"
	shopNoOrgToken, err := p.Sign(shopNoOrg)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"expired":      expiredToken,
		"unknown role": noRoleToken,
		"shop no org":  shopNoOrgToken,
		"alg none":     none,
	} {
		_, err := p.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

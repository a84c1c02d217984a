package access_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/access"
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims access.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claims(role, emulated string) access.Claims {
	return access.Claims{
		OrganizationID: "org-1",
		Role:           role,
		EmulatedRole:   emulated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		role access.Role
		res  string
		op   access.Op
		want bool
	}{
		{access.RoleSuperAdmin, access.ResourceReports, access.OpExport, true},
		{access.RoleSuperAdmin, access.ResourceMetrics, access.OpRead, true},
		{access.RoleAdmin, access.ResourceReports, access.OpExport, true},
		{access.RoleAdmin, access.ResourceMetrics, access.OpRead, true},
		{access.RolePropertyManager, access.ResourceReports, access.OpRead, true},
		{access.RolePropertyManager, access.ResourceMetrics, access.OpRead, false},
		{access.RoleStaff, access.ResourceReports, access.OpRead, true},
		{access.RoleStaff, access.ResourceReports, access.OpExport, false},
		{access.RoleTenant, access.ResourceReports, access.OpRead, false},
		{access.Role("JANITOR"), access.ResourceReports, access.OpRead, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, access.Allowed(tc.role, tc.res, tc.op), "%s %s %s", tc.role, tc.op, tc.res)
	}
}

func TestParseClaims_Valid(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claims("property_manager", ""))

	p, err := access.ParseClaims(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "org-1", p.OrganizationID)
	assert.Equal(t, access.RolePropertyManager, p.Role)
	assert.True(t, p.Can(access.ResourceReports, access.OpExport))
}

func TestParseClaims_SuperAdminEmulation(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claims("SUPER_ADMIN", "TENANT"))

	p, err := access.ParseClaims(token, secret)
	require.NoError(t, err)
	assert.Equal(t, access.RoleTenant, p.EffectiveRole())
	assert.False(t, p.Can(access.ResourceReports, access.OpRead))
}

func TestParseClaims_OnlySuperAdminMayEmulate(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claims("STAFF", "SUPER_ADMIN"))

	p, err := access.ParseClaims(token, secret)
	require.NoError(t, err)
	assert.Equal(t, access.RoleStaff, p.EffectiveRole())
	assert.False(t, p.Can(access.ResourceReports, access.OpExport))
}

func TestParseClaims_Rejects(t *testing.T) {
	expired := claims("ADMIN", "")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExp := claims("ADMIN", "")
	noExp.ExpiresAt = nil

	noSub := claims("ADMIN", "")
	noSub.Subject = ""

	noOrg := claims("ADMIN", "")
	noOrg.OrganizationID = ""

	blankOrg := claims("STAFF", "")
	blankOrg.OrganizationID = "  "

	cases := map[string]string{
		"wrong secret":  sign(t, jwt.SigningMethodHS256, []byte("other"), claims("ADMIN", "")),
		"wrong method":  sign(t, jwt.SigningMethodHS512, []byte(secret), claims("ADMIN", "")),
		"expired":       sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
		"no expiry":     sign(t, jwt.SigningMethodHS256, []byte(secret), noExp),
		"no subject":    sign(t, jwt.SigningMethodHS256, []byte(secret), noSub),
		"no org":        sign(t, jwt.SigningMethodHS256, []byte(secret), noOrg),
		"blank org":     sign(t, jwt.SigningMethodHS256, []byte(secret), blankOrg),
		"unknown role":  sign(t, jwt.SigningMethodHS256, []byte(secret), claims("JANITOR", "")),
		"garbage token": "not.a.jwt",
	}
	for name, token := range cases {
		_, err := access.ParseClaims(token, secret)
		var unauth *domain.ErrUnauthorized
		assert.True(t, errors.As(err, &unauth), name)
	}
}

func TestParseClaims_OrganizationScope(t *testing.T) {
	for _, role := range []string{"ADMIN", "PROPERTY_MANAGER", "STAFF", "TENANT"} {
		c := claims(role, "")
		c.OrganizationID = ""
		_, err := access.ParseClaims(sign(t, jwt.SigningMethodHS256, []byte(secret), c), secret)
		var unauth *domain.ErrUnauthorized
		assert.ErrorAs(t, err, &unauth, role)
	}

	global := claims("SUPER_ADMIN", "")
	global.OrganizationID = ""
	p, err := access.ParseClaims(sign(t, jwt.SigningMethodHS256, []byte(secret), global), secret)
	require.NoError(t, err)
	assert.True(t, p.AllOrganizations())

	scoped, err := access.ParseClaims(sign(t, jwt.SigningMethodHS256, []byte(secret), claims("SUPER_ADMIN", "ADMIN")), secret)
	require.NoError(t, err)
	assert.False(t, scoped.AllOrganizations())
	assert.False(t, access.Principal{Role: access.RoleAdmin}.AllOrganizations())
}

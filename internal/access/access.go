// Package access decides who may read which reports. Callers present an
// HS256 JWT issued by the property platform; its claims carry the user's
// organization and role.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a platform role.
type Role string

const (
	RoleSuperAdmin      Role = "SUPER_ADMIN"
	RoleAdmin           Role = "ADMIN"
	RolePropertyManager Role = "PROPERTY_MANAGER"
	RoleStaff           Role = "STAFF"
	RoleTenant          Role = "TENANT"
)

// Op is an operation on a resource.
type Op string

const (
	OpRead   Op = "read"
	OpExport Op = "export"
)

// Resources guarded by the table.
const (
	ResourceReports = "/reports"
	ResourceMetrics = "/metrics"
)

type grant struct {
	prefix string
	ops    []Op
}

// permissions maps each role to the resource prefixes it may use.
var permissions = map[Role][]grant{
	RoleSuperAdmin: {
		{prefix: "/", ops: []Op{OpRead, OpExport}},
	},
	RoleAdmin: {
		{prefix: ResourceReports, ops: []Op{OpRead, OpExport}},
		{prefix: ResourceMetrics, ops: []Op{OpRead}},
	},
	RolePropertyManager: {
		{prefix: ResourceReports, ops: []Op{OpRead, OpExport}},
	},
	RoleStaff: {
		{prefix: ResourceReports, ops: []Op{OpRead}},
	},
	RoleTenant: nil,
}

// Allowed reports whether role may perform op on resource.
func Allowed(role Role, resource string, op Op) bool {
	for _, g := range permissions[role] {
		if !strings.HasPrefix(resource, g.prefix) {
			continue
		}
		for _, o := range g.ops {
			if o == op {
				return true
			}
		}
	}
	return false
}

// Principal is the authenticated caller.
type Principal struct {
	UserID         string
	OrganizationID string
	Role           Role
	// EmulatedRole is honored only for super admins.
	EmulatedRole Role
}

// AllOrganizations reports whether the caller reads across organizations.
// Only a super admin without an organization claim does; emulation does not
// change the scope.
func (p Principal) AllOrganizations() bool {
	return p.Role == RoleSuperAdmin && p.OrganizationID == ""
}

// EffectiveRole is the role permissions are evaluated against.
func (p Principal) EffectiveRole() Role {
	if p.Role == RoleSuperAdmin && p.EmulatedRole != "" {
		return p.EmulatedRole
	}
	return p.Role
}

// Can reports whether the principal may perform op on resource.
func (p Principal) Can(resource string, op Op) bool {
	return Allowed(p.EffectiveRole(), resource, op)
}

// Claims is the JWT payload.
type Claims struct {
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	EmulatedRole   string `json:"emulated_role,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims verifies token with secret and returns its principal.
func ParseClaims(token, secret string) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return Principal{}, &domain.ErrUnauthorized{Message: fmt.Sprintf("invalid token: %v", err)}
	}

	role := Role(strings.ToUpper(claims.Role))
	if _, known := permissions[role]; !known {
		return Principal{}, &domain.ErrUnauthorized{Message: fmt.Sprintf("unknown role %q", claims.Role)}
	}
	if claims.Subject == "" {
		return Principal{}, &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	orgID := strings.TrimSpace(claims.OrganizationID)
	if orgID == "" && role != RoleSuperAdmin {
		return Principal{}, &domain.ErrUnauthorized{Message: "token has no organization"}
	}

	p := Principal{
		UserID:         claims.Subject,
		OrganizationID: orgID,
		Role:           role,
	}
	if claims.EmulatedRole != "" && role == RoleSuperAdmin {
		emulated := Role(strings.ToUpper(claims.EmulatedRole))
		if _, known := permissions[emulated]; known {
			p.EmulatedRole = emulated
		}
	}
	return p, nil
}

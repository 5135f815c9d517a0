package session

// Role is the backend role code of a principal.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManagement Role = "gestionnaire"
	RoleAccounting Role = "comptable"
	RoleFieldAgent Role = "agent"
	RoleDirection  Role = "direction"
	RoleReadOnly   Role = "lecteur"
)

var roles = []Role{RoleAdmin, RoleManagement, RoleAccounting, RoleFieldAgent, RoleDirection, RoleReadOnly}

// Roles returns every known role.
func Roles() []Role {
	return append([]Role(nil), roles...)
}

func (r Role) Valid() bool {
	return HasRole(r, roles...)
}

// Capability names an action gated by the role table.
type Capability string

const (
	CapValidateClaim     Capability = "validate_claim"
	CapPayInstallment    Capability = "pay_installment"
	CapCloseClaim        Capability = "close_claim"
	CapReadOnly          Capability = "read_only"
	CapManageUsers       Capability = "manage_users"
	CapViewAccounting    Capability = "view_accounting"
	CapWriteContracts    Capability = "write_contracts"
	CapDeclareClaim      Capability = "declare_claim"
	CapChangeClaimStatus Capability = "change_claim_status"
)

// capabilities is the fixed role table. A capability missing from the table is
// granted to every role except read-only.
var capabilities = map[Capability][]Role{
	CapValidateClaim:  {RoleAdmin, RoleDirection, RoleManagement},
	CapPayInstallment: {RoleAdmin, RoleDirection, RoleAccounting},
	CapCloseClaim:     {RoleAdmin, RoleDirection},
	CapReadOnly:       {RoleReadOnly},
	CapManageUsers:    {RoleAdmin},
	CapViewAccounting: {RoleAdmin, RoleDirection, RoleAccounting},
}

// MutationCapabilities lists the capabilities that allow a write.
var MutationCapabilities = []Capability{
	CapValidateClaim,
	CapPayInstallment,
	CapCloseClaim,
	CapManageUsers,
	CapWriteContracts,
	CapDeclareClaim,
	CapChangeClaimStatus,
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role Role, capability Capability) bool {
	if !role.Valid() {
		return false
	}
	if allowed, ok := capabilities[capability]; ok {
		return HasRole(role, allowed...)
	}
	return role != RoleReadOnly
}

// HasRole reports whether role is one of candidates.
func HasRole(role Role, candidates ...Role) bool {
	for _, c := range candidates {
		if c == role {
			return true
		}
	}
	return false
}

const (
	LoginPath             = "/login"
	DashboardPath         = "/dashboard"
	AccountingLandingPath = "/comptabilite"
)

// LandingPath is where a principal of role lands after login or a refused route.
func LandingPath(role Role) string {
	if role == RoleAccounting {
		return AccountingLandingPath
	}
	return DashboardPath
}

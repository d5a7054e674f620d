package rbac

// Role constants
const (
	RoleManager = "manager"
	RoleTalent  = "talent"
	RoleAdmin   = "admin"
)

// Permission constants
const (
	PermCreateContract    = "create_contract"
	PermSendContract      = "send_contract"
	PermAcceptContract    = "accept_contract"
	PermDeclineContract   = "decline_contract"
	PermCancelContract    = "cancel_contract"
	PermStartMilestone    = "start_milestone"
	PermSubmitMilestone   = "submit_milestone"
	PermApproveMilestone  = "approve_milestone"
	PermRequestRevision   = "request_revision"
	PermAdminOverride     = "admin_override"
)

// RolePermissions defines what each role can do in the contract lifecycle.
// Party checks (is this user THE manager/talent of THIS contract) live in
// the services; this table only gates the operation class.
var RolePermissions = map[string][]string{
	RoleManager: {
		PermCreateContract, PermSendContract, PermCancelContract,
		PermApproveMilestone, PermRequestRevision,
	},
	RoleTalent: {
		PermAcceptContract, PermDeclineContract, PermCancelContract,
		PermStartMilestone, PermSubmitMilestone,
	},
	RoleAdmin: {
		PermAdminOverride,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation reports whether the permission moves money and is
// therefore admin-auditable.
func IsFinancialOperation(permission string) bool {
	return permission == PermApproveMilestone || permission == PermAdminOverride
}

package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleFinance approves and processes remittance batches and settlements.
	RoleFinance = "finance"
	// RoleOperations runs reconciliation and stale-request tooling.
	RoleOperations = "operations"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

package models

const (
	RequesterRoleStudent    = "student"
	RequesterRoleEducator   = "educator"
	RequesterRoleAdmin      = "admin"
	RequesterRoleSuperAdmin = "super_admin"
)

// Requester is the identity forwarded by the upstream auth gateway. It is trusted as-is.
type Requester struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (r *Requester) IsAdmin() bool {
	return r.Role == RequesterRoleAdmin || r.Role == RequesterRoleSuperAdmin
}

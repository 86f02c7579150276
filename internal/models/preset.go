package models

// SystemRole is an org-wide role users hold independently of any server.
type SystemRole struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
}

// Preset links a system role to a server role. Granting or revoking the system
// role for a user grants or revokes every linked server role in turn.
type Preset struct {
	SystemRoleID int64 `json:"system_role_id,string"`
	ServerRoleID int64 `json:"server_role_id,string"`
}

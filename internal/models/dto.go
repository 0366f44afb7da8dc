package models

// ==================== Wizard API DTOs ====================

// WizardStateResponse is the full session view returned after every transition.
type WizardStateResponse struct {
	SessionID     string         `json:"session_id"`
	Step          string         `json:"step"`
	Protocol      string         `json:"protocol"`
	ServerID      string         `json:"server_id,omitempty"`
	Servers       []Server       `json:"servers,omitempty"`
	ServersSource string         `json:"servers_source,omitempty"` // live or fallback
	Creating      bool           `json:"creating"`
	Result        *AccountResult `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// SelectProtocolRequest selects the protocol at the protocol step.
type SelectProtocolRequest struct {
	Protocol string `json:"protocol" binding:"required"`
}

// SelectServerRequest selects the target server at the server step.
type SelectServerRequest struct {
	ServerID string `json:"server_id" binding:"required"`
}

// SubmitFormRequest carries the configuration form fields.
type SubmitFormRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password,omitempty"`
	Duration int    `json:"duration"`
	Quota    int    `json:"quota"`
	IPLimit  int    `json:"ip_limit"`
}

// ==================== Catalog API DTOs ====================

// ServerListResponse is returned by GET /servers. Source tells callers (and
// tests) whether the list came from the registry or the fallback sample set.
type ServerListResponse struct {
	Servers []Server `json:"servers"`
	Source  string   `json:"source"`
}

// ==================== Admin API DTOs ====================

// AdminLoginRequest authenticates the admin gate.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse carries the session token for subsequent admin calls.
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// AddServerRequest registers a new server. All three fields are required.
type AddServerRequest struct {
	Domain     string `json:"domain"`
	Auth       string `json:"auth"`
	NamaServer string `json:"nama_server"`
	Location   string `json:"location,omitempty"`
}

// ChangePasswordRequest rotates the admin gate credential.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

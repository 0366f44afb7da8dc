package models

import (
	"time"
)

// Server status constants
const (
	ServerStatusOnline      = "online"
	ServerStatusOffline     = "offline"
	ServerStatusMaintenance = "maintenance"
)

// Protocol constants: the four credential schemes the panel can provision
const (
	ProtocolSSH    = "ssh"
	ProtocolVMess  = "vmess"
	ProtocolVLESS  = "vless"
	ProtocolTrojan = "trojan"
)

// AllProtocols lists every supported protocol in display order.
var AllProtocols = []string{ProtocolSSH, ProtocolVMess, ProtocolVLESS, ProtocolTrojan}

// IsValidProtocol reports whether p is one of the supported protocols.
func IsValidProtocol(p string) bool {
	switch p {
	case ProtocolSSH, ProtocolVMess, ProtocolVLESS, ProtocolTrojan:
		return true
	}
	return false
}

// Server is a provisioning endpoint as shown to the wizard.
// Only servers with status "online" are selectable for provisioning.
type Server struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Domain    string   `json:"domain"`
	Location  string   `json:"location"`
	Auth      string   `json:"auth"`
	Status    string   `json:"status"`
	Protocols []string `json:"protocols"`
	Ping      int      `json:"ping"`
	Users     int      `json:"users"`
}

// Supports reports whether the server advertises the given protocol.
func (s *Server) Supports(protocol string) bool {
	for _, p := range s.Protocols {
		if p == protocol {
			return true
		}
	}
	return false
}

// ServerEntry is a registry row managed through the admin API.
type ServerEntry struct {
	ID         int64     `json:"id"`
	Domain     string    `json:"domain"`
	Auth       string    `json:"auth"`
	NamaServer string    `json:"nama_server"`
	Location   string    `json:"location,omitempty"`
	Status     string    `json:"status"`
	Ping       int       `json:"ping"`
	Users      int       `json:"users"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProvisionLog is an append-only audit record of a provisioning attempt.
// Credential material is never stored here.
type ProvisionLog struct {
	ID        string
	ServerID  string
	Protocol  string
	Username  string
	Action    string
	Status    string
	Message   string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

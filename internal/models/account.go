package models

// Failure codes surfaced to clients. All are recoverable: the user may
// retry or pick a different server/protocol.
const (
	CodeValidationError   = "validation_error"
	CodeServerUnavailable = "server_unavailable"
	CodeTransportError    = "transport_error"
	CodeBackendError      = "backend_error"
)

// Request defaults when the caller omits them.
const (
	DefaultDurationDays = 30
	DefaultIPLimit      = 2
	DefaultQuotaGB      = 0 // 0 = unlimited
)

// ProvisioningRequest carries the user's input for one account creation.
type ProvisioningRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Protocol string `json:"protocol"`
	Duration int    `json:"duration"`
	Quota    int    `json:"quota,omitempty"`
	IPLimit  int    `json:"ip_limit"`
	ServerID string `json:"server_id"`
}

// ApplyDefaults fills duration and IP limit when the caller left them unset.
func (r *ProvisioningRequest) ApplyDefaults() {
	if r.Duration <= 0 {
		r.Duration = DefaultDurationDays
	}
	if r.IPLimit <= 0 {
		r.IPLimit = DefaultIPLimit
	}
	if r.Quota < 0 {
		r.Quota = DefaultQuotaGB
	}
}

// SSHAccount holds the SSH-only credential fields.
type SSHAccount struct {
	Password string `json:"password"`
	WSPort   string `json:"ssh_ws_port"`
	SSLPort  string `json:"ssh_ssl_port"`
}

// XrayAccount holds the VMess/VLESS/Trojan credential fields. Exactly the
// links matching the protocol are populated; Trojan accounts also carry a
// password alongside the UUID.
type XrayAccount struct {
	UUID        string `json:"uuid"`
	Password    string `json:"password,omitempty"`
	TLSLink     string `json:"tls_link,omitempty"`
	NonTLSLink  string `json:"nontls_link,omitempty"`
	GRPCLink    string `json:"grpc_link,omitempty"`
	NSDomain    string `json:"ns_domain,omitempty"`
}

// AccountResult is the normalized outcome of a successful provisioning call.
// Exactly one of SSH or Xray is set, matching Protocol.
type AccountResult struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Expired  string `json:"expired"`
	IPLimit  string `json:"ip_limit"`
	Quota    string `json:"quota,omitempty"`
	Protocol string `json:"protocol"`

	SSH  *SSHAccount  `json:"ssh,omitempty"`
	Xray *XrayAccount `json:"xray,omitempty"`
}

// CreateAccountResult is the tagged success/failure value returned by the
// provisioning flow. It is never accompanied by an error: every failure mode
// is folded into Code and Message.
type CreateAccountResult struct {
	Success bool           `json:"success"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Data    *AccountResult `json:"data,omitempty"`
}

// Failure builds a tagged failure result.
func Failure(code, message string) *CreateAccountResult {
	return &CreateAccountResult{Success: false, Code: code, Message: message}
}

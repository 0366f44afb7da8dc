package wizard

import (
	"time"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

// Wizard steps, in forward order.
const (
	StepProtocol = "protocol"
	StepServer   = "server"
	StepForm     = "form"
	StepResult   = "result"
)

// Session holds one wizard instance's state. Sessions live only in memory
// and never persist the account result beyond their TTL.
type Session struct {
	ID            string
	Step          string
	Protocol      string
	ServerID      string
	Servers       []models.Server
	ServersSource string
	Creating      bool
	Result        *models.AccountResult
	LastError     string

	// submitEpoch increments on every submit and reset so that a response
	// arriving after the user navigated away is recognized and dropped.
	submitEpoch uint64

	touchedAt time.Time
}

// snapshot renders the session as an API response.
func (s *Session) snapshot() *models.WizardStateResponse {
	resp := &models.WizardStateResponse{
		SessionID: s.ID,
		Step:      s.Step,
		Protocol:  s.Protocol,
		ServerID:  s.ServerID,
		Creating:  s.Creating,
		Result:    s.Result,
		Error:     s.LastError,
	}
	if s.Step == StepServer {
		resp.Servers = s.Servers
		resp.ServersSource = s.ServersSource
	}
	return resp
}

func (s *Session) findServer(id string) *models.Server {
	for i := range s.Servers {
		if s.Servers[i].ID == id {
			return &s.Servers[i]
		}
	}
	return nil
}

// reset returns the session to the protocol step and clears everything the
// previous run accumulated. The protocol falls back to the default so the
// wizard restarts exactly as it first opened.
func (s *Session) reset() {
	s.Step = StepProtocol
	s.Protocol = models.ProtocolSSH
	s.ServerID = ""
	s.Result = nil
	s.LastError = ""
	s.Creating = false
	s.submitEpoch++
}

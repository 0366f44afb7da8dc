package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

var (
	ErrSessionNotFound   = errors.New("wizard session not found")
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrSubmitInFlight    = errors.New("account creation already in progress")
)

// ServerLister supplies the catalog shown at the server step.
type ServerLister interface {
	List(ctx context.Context) *models.ServerListResponse
}

// Provisioner performs the account creation triggered from the form step.
type Provisioner interface {
	CreateAccount(ctx context.Context, req *models.ProvisioningRequest) *models.CreateAccountResult
}

// Manager owns every live wizard session. All session state is guarded by
// one mutex; the provisioning call itself runs outside the lock so a slow
// node agent never blocks other sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	servers   ServerLister
	provision Provisioner
	ttl       time.Duration
}

// NewManager creates a session manager. ttl bounds how long an untouched
// session (and any credential result it holds) stays in memory.
func NewManager(servers ServerLister, provision Provisioner, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		servers:   servers,
		provision: provision,
		ttl:       ttl,
	}
}

// Start opens a new session at the protocol step.
func (m *Manager) Start() *models.WizardStateResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:        uuid.New().String(),
		Step:      StepProtocol,
		Protocol:  models.ProtocolSSH,
		touchedAt: time.Now(),
	}
	m.sessions[s.ID] = s
	return s.snapshot()
}

// State returns the current session view.
func (m *Manager) State(id string) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

// SelectProtocol confirms the protocol choice and advances to the server
// step. Re-selecting the already-chosen protocol counts as confirmation and
// advances as well. Entering the server step loads the catalog.
func (m *Manager) SelectProtocol(ctx context.Context, id, protocol string) (*models.WizardStateResponse, error) {
	if !models.IsValidProtocol(protocol) {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrInvalidTransition, protocol)
	}

	m.mu.Lock()
	s, err := m.session(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.Step != StepProtocol {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot select protocol at step %s", ErrInvalidTransition, s.Step)
	}
	s.Protocol = protocol
	s.Step = StepServer
	s.LastError = ""
	m.mu.Unlock()

	m.loadServers(ctx, id)
	return m.State(id)
}

// SelectServer picks the target server and advances to the form step.
// Picking a server that is not online is a no-op: the step does not change
// and the caller gets an error to surface.
func (m *Manager) SelectServer(id, serverID string) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	if s.Step != StepServer {
		return nil, fmt.Errorf("%w: cannot select server at step %s", ErrInvalidTransition, s.Step)
	}

	srv := s.findServer(serverID)
	if srv == nil {
		return nil, fmt.Errorf("%w: server %q not in the current list", ErrInvalidTransition, serverID)
	}
	if srv.Status != models.ServerStatusOnline {
		return nil, fmt.Errorf("%w: server %s is %s", ErrInvalidTransition, srv.Name, srv.Status)
	}
	if !srv.Supports(s.Protocol) {
		return nil, fmt.Errorf("%w: server %s does not support %s", ErrInvalidTransition, srv.Name, s.Protocol)
	}

	s.ServerID = serverID
	s.Step = StepForm
	s.LastError = ""
	s.touchedAt = time.Now()
	return s.snapshot(), nil
}

// Submit runs account creation for the form input. At most one submit is in
// flight per session; the in-flight flag clears on every path. The node call
// runs unlocked, and its outcome is applied only if the session is still
// sitting on the form step of the same submit; otherwise the response is
// stale and dropped.
func (m *Manager) Submit(ctx context.Context, id string, form *models.SubmitFormRequest) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	s, err := m.session(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.Step != StepForm {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot submit at step %s", ErrInvalidTransition, s.Step)
	}
	if s.Creating {
		m.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	s.Creating = true
	s.LastError = ""
	s.submitEpoch++
	epoch := s.submitEpoch

	req := &models.ProvisioningRequest{
		UserID:   s.ID,
		Username: form.Username,
		Password: form.Password,
		Protocol: s.Protocol,
		Duration: form.Duration,
		Quota:    form.Quota,
		IPLimit:  form.IPLimit,
		ServerID: s.ServerID,
	}
	m.mu.Unlock()

	result := m.provision.CreateAccount(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		// Session expired mid-flight; nothing to apply.
		return nil, ErrSessionNotFound
	}

	if s.Step != StepForm || s.submitEpoch != epoch {
		// The user navigated away (back/reset) while the call was in
		// flight. Drop the response without touching state. The in-flight
		// flag belongs to whichever submit owns the current epoch: a later
		// epoch means a reset happened and a new submit may already be
		// running, so only the owning epoch may clear it.
		log.Printf("[wizard] Dropping stale create response for session %s", id)
		if s.submitEpoch == epoch {
			s.Creating = false
		}
		return s.snapshot(), nil
	}

	s.Creating = false
	s.touchedAt = time.Now()

	if result.Success {
		s.Result = result.Data
		s.Step = StepResult
	} else {
		s.LastError = result.Message
	}
	return s.snapshot(), nil
}

// Back steps one screen backwards (result→form→server→protocol). Landing on
// the server step reloads the catalog, same as entering it forwards.
func (m *Manager) Back(ctx context.Context, id string) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	s, err := m.session(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	switch s.Step {
	case StepServer:
		s.Step = StepProtocol
	case StepForm:
		s.Step = StepServer
	case StepResult:
		s.Step = StepForm
	default:
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: already at the first step", ErrInvalidTransition)
	}
	s.LastError = ""
	s.touchedAt = time.Now()
	reload := s.Step == StepServer
	m.mu.Unlock()

	if reload {
		m.loadServers(ctx, id)
	}
	return m.State(id)
}

// Reset returns the session to the protocol step from any state, clearing
// the server selection and the account result.
func (m *Manager) Reset(id string) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	s.reset()
	s.touchedAt = time.Now()
	return s.snapshot(), nil
}

// RefreshServers reloads the catalog without leaving the server step.
func (m *Manager) RefreshServers(ctx context.Context, id string) (*models.WizardStateResponse, error) {
	m.mu.Lock()
	s, err := m.session(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.Step != StepServer {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: server list refresh is only available at the server step", ErrInvalidTransition)
	}
	m.mu.Unlock()

	m.loadServers(ctx, id)
	return m.State(id)
}

// SweepExpired drops sessions untouched for longer than the TTL. Wired to
// cron from main.
func (m *Manager) SweepExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.touchedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// loadServers fetches the catalog unlocked and applies it if the session is
// still showing the server step.
func (m *Manager) loadServers(ctx context.Context, id string) {
	list := m.servers.List(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Step != StepServer {
		return
	}
	s.Servers = list.Servers
	s.ServersSource = list.Source
	s.touchedAt = time.Now()
}

func (m *Manager) session(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touchedAt = time.Now()
	return s, nil
}

package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

type fakeLister struct {
	servers []models.Server
	source  string
}

func (f *fakeLister) List(ctx context.Context) *models.ServerListResponse {
	return &models.ServerListResponse{Servers: f.servers, Source: f.source}
}

type fakeProvisioner struct {
	calls   int
	result  *models.CreateAccountResult
	block   chan struct{} // when non-nil, CreateAccount waits on it
	onEnter func()        // runs before blocking, for test sequencing
}

func (f *fakeProvisioner) CreateAccount(ctx context.Context, req *models.ProvisioningRequest) *models.CreateAccountResult {
	f.calls++
	if f.onEnter != nil {
		f.onEnter()
	}
	if f.block != nil {
		<-f.block
	}
	if f.result != nil {
		return f.result
	}
	return &models.CreateAccountResult{
		Success: true,
		Message: "SSH account created successfully!",
		Data: &models.AccountResult{
			Username: req.Username,
			Protocol: req.Protocol,
			SSH:      &models.SSHAccount{Password: req.Password},
		},
	}
}

func catalog() []models.Server {
	return []models.Server{
		{ID: "1", Name: "Singapore 1", Domain: "sg1.example.com", Status: models.ServerStatusOnline, Protocols: models.AllProtocols},
		{ID: "2", Name: "United States 1", Domain: "us1.example.com", Status: models.ServerStatusOffline, Protocols: models.AllProtocols},
		{ID: "3", Name: "Japan 1", Domain: "jp1.example.com", Status: models.ServerStatusOnline, Protocols: []string{models.ProtocolSSH}},
	}
}

func newTestManager(p *fakeProvisioner) *Manager {
	return NewManager(&fakeLister{servers: catalog(), source: "live"}, p, time.Minute)
}

// advanceToForm walks a fresh session to the form step.
func advanceToForm(t *testing.T, m *Manager, protocol string) string {
	t.Helper()
	state := m.Start()
	_, err := m.SelectProtocol(context.Background(), state.SessionID, protocol)
	require.NoError(t, err)
	_, err = m.SelectServer(state.SessionID, "1")
	require.NoError(t, err)
	return state.SessionID
}

func TestWizardFullFlow(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})

	state := m.Start()
	assert.Equal(t, StepProtocol, state.Step)
	assert.Equal(t, models.ProtocolSSH, state.Protocol)

	state, err := m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolVMess)
	require.NoError(t, err)
	assert.Equal(t, StepServer, state.Step)
	assert.Equal(t, models.ProtocolVMess, state.Protocol)
	assert.Len(t, state.Servers, 3)
	assert.Equal(t, "live", state.ServersSource)

	state, err = m.SelectServer(state.SessionID, "1")
	require.NoError(t, err)
	assert.Equal(t, StepForm, state.Step)
	assert.Equal(t, "1", state.ServerID)
	assert.Empty(t, state.Servers, "server list is only exposed at the server step")

	state, err = m.Submit(context.Background(), state.SessionID, &models.SubmitFormRequest{
		Username: "alice1",
		Password: "p@ssw0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, StepResult, state.Step)
	require.NotNil(t, state.Result)
	assert.Equal(t, "alice1", state.Result.Username)
	assert.False(t, state.Creating)
}

func TestSelectServerRejectsOfflineAndUnsupported(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})
	state := m.Start()
	_, err := m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolTrojan)
	require.NoError(t, err)

	// Offline server.
	_, err = m.SelectServer(state.SessionID, "2")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Online but does not carry trojan.
	_, err = m.SelectServer(state.SessionID, "3")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Not in the list at all.
	_, err = m.SelectServer(state.SessionID, "99")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// The step never moved.
	current, err := m.State(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepServer, current.Step)
	assert.Empty(t, current.ServerID)
}

func TestSelectProtocolGuards(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})
	state := m.Start()

	_, err := m.SelectProtocol(context.Background(), state.SessionID, "wireguard")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolSSH)
	require.NoError(t, err)

	// Already past the protocol step.
	_, err = m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolVLESS)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBackWalksStepsInReverse(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})
	id := advanceToForm(t, m, models.ProtocolSSH)

	state, err := m.Back(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StepServer, state.Step)

	state, err = m.Back(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StepProtocol, state.Step)

	_, err = m.Back(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBackToServerReloadsCatalog(t *testing.T) {
	lister := &fakeLister{servers: catalog(), source: "live"}
	m := NewManager(lister, &fakeProvisioner{}, time.Minute)

	state := m.Start()
	_, err := m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolSSH)
	require.NoError(t, err)
	_, err = m.SelectServer(state.SessionID, "1")
	require.NoError(t, err)

	// The fleet changes while the user is on the form.
	lister.servers = catalog()[:1]

	state, err = m.Back(context.Background(), state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StepServer, state.Step)
	assert.Len(t, state.Servers, 1, "stepping back onto the server step must reload the list")
}

func TestResetClearsEverythingFromAnyStep(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})

	assertCleared := func(id string) {
		state, err := m.Reset(id)
		require.NoError(t, err)
		assert.Equal(t, StepProtocol, state.Step)
		assert.Equal(t, models.ProtocolSSH, state.Protocol)
		assert.Empty(t, state.ServerID)
		assert.Nil(t, state.Result)
		assert.Empty(t, state.Error)
	}

	// From the server step.
	state := m.Start()
	_, err := m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolVMess)
	require.NoError(t, err)
	assertCleared(state.SessionID)

	// From the form step.
	assertCleared(advanceToForm(t, m, models.ProtocolTrojan))

	// From the result step.
	id := advanceToForm(t, m, models.ProtocolVLESS)
	_, err = m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "bob2"})
	require.NoError(t, err)
	assertCleared(id)
}

func TestSubmitFailureStaysOnForm(t *testing.T) {
	p := &fakeProvisioner{result: models.Failure(models.CodeTransportError, "Could not reach the server.")}
	m := newTestManager(p)
	id := advanceToForm(t, m, models.ProtocolVMess)

	state, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1"})
	require.NoError(t, err)
	assert.Equal(t, StepForm, state.Step)
	assert.Nil(t, state.Result)
	assert.Equal(t, "Could not reach the server.", state.Error)
	assert.False(t, state.Creating)

	// The error clears on the next attempt.
	p.result = nil
	state, err = m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, StepResult, state.Step)
	assert.Empty(t, state.Error)
}

func TestSubmitRejectsSecondInFlight(t *testing.T) {
	p := &fakeProvisioner{block: make(chan struct{})}
	m := newTestManager(p)
	id := advanceToForm(t, m, models.ProtocolSSH)

	started := make(chan struct{})
	p.onEnter = func() { close(started) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
		assert.NoError(t, err)
	}()

	<-started
	_, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(p.block)
	<-done

	state, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, StepResult, state.Step)
	assert.Equal(t, 1, p.calls)
}

// gatedProvisioner blocks each call on its own channel so tests can release
// overlapping submits in a chosen order.
type gatedProvisioner struct {
	mu      sync.Mutex
	calls   int
	started chan int
	release map[int]chan struct{}
}

func (f *gatedProvisioner) CreateAccount(ctx context.Context, req *models.ProvisioningRequest) *models.CreateAccountResult {
	f.mu.Lock()
	f.calls++
	gate := f.release[f.calls]
	n := f.calls
	f.mu.Unlock()

	f.started <- n
	<-gate
	return &models.CreateAccountResult{
		Success: true,
		Message: "SSH account created successfully!",
		Data: &models.AccountResult{
			Username: req.Username,
			Protocol: req.Protocol,
			SSH:      &models.SSHAccount{Password: req.Password},
		},
	}
}

func TestStaleResponseDoesNotUnlockNewSubmit(t *testing.T) {
	p := &gatedProvisioner{
		started: make(chan int, 2),
		release: map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})},
	}
	m := NewManager(&fakeLister{servers: catalog(), source: "live"}, p, time.Minute)
	id := advanceToForm(t, m, models.ProtocolSSH)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
		assert.NoError(t, err)
	}()
	<-p.started

	// The user gives up on the first attempt and walks the wizard forward
	// again while it is still in flight.
	_, err := m.Reset(id)
	require.NoError(t, err)
	_, err = m.SelectProtocol(context.Background(), id, models.ProtocolSSH)
	require.NoError(t, err)
	_, err = m.SelectServer(id, "1")
	require.NoError(t, err)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
		assert.NoError(t, err)
	}()
	<-p.started

	// The first call returns late. Its response is stale; it must not clear
	// the second submit's in-flight flag.
	close(p.release[1])
	<-firstDone

	state, err := m.State(id)
	require.NoError(t, err)
	assert.True(t, state.Creating, "the second submit is still in flight")
	_, err = m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(p.release[2])
	<-secondDone

	state, err = m.State(id)
	require.NoError(t, err)
	assert.Equal(t, StepResult, state.Step)
	assert.Equal(t, 2, p.calls)
}

func TestSubmitDropsStaleResponseAfterReset(t *testing.T) {
	p := &fakeProvisioner{block: make(chan struct{})}
	m := newTestManager(p)
	id := advanceToForm(t, m, models.ProtocolSSH)

	started := make(chan struct{})
	p.onEnter = func() { close(started) }

	done := make(chan *models.WizardStateResponse)
	go func() {
		state, err := m.Submit(context.Background(), id, &models.SubmitFormRequest{Username: "alice1", Password: "x"})
		assert.NoError(t, err)
		done <- state
	}()

	<-started
	// The user gives up and restarts the wizard while the call is in flight.
	_, err := m.Reset(id)
	require.NoError(t, err)

	close(p.block)
	state := <-done

	// The late success was dropped: the session stays where reset put it.
	assert.Equal(t, StepProtocol, state.Step)
	assert.Nil(t, state.Result)
	assert.False(t, state.Creating)
}

func TestRefreshServersOnlyAtServerStep(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})
	state := m.Start()

	_, err := m.RefreshServers(context.Background(), state.SessionID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	state, err = m.SelectProtocol(context.Background(), state.SessionID, models.ProtocolSSH)
	require.NoError(t, err)

	state, err = m.RefreshServers(context.Background(), state.SessionID)
	require.NoError(t, err)
	assert.Len(t, state.Servers, 3)
}

func TestSweepExpiredDropsIdleSessions(t *testing.T) {
	m := NewManager(&fakeLister{servers: catalog(), source: "live"}, &fakeProvisioner{}, time.Minute)
	state := m.Start()

	m.mu.Lock()
	m.sessions[state.SessionID].touchedAt = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	m.SweepExpired()

	_, err := m.State(state.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(&fakeProvisioner{})

	_, err := m.State("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Submit(context.Background(), "nope", &models.SubmitFormRequest{})
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Reset("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/client"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// AccountCreator is the node agent call the provisioning service depends on.
type AccountCreator interface {
	CreateAccount(ctx context.Context, server *models.Server, req *models.ProvisioningRequest) (*models.AccountResult, error)
}

// AttemptLogger records provisioning attempt outcomes.
type AttemptLogger interface {
	LogAttempt(ctx context.Context, serverID, protocol, username, status, message string) error
}

// ProvisionService validates provisioning requests and drives account
// creation against the selected server's node agent.
type ProvisionService struct {
	servers *ServerService
	node    AccountCreator
	logs    AttemptLogger
}

// NewProvisionService creates a provisioning service.
func NewProvisionService(servers *ServerService, node AccountCreator, logs AttemptLogger) *ProvisionService {
	return &ProvisionService{
		servers: servers,
		node:    node,
		logs:    logs,
	}
}

// CreateAccount runs the full provisioning flow: validate, resolve the
// server, call the node agent, normalize. Every failure mode comes back as
// a tagged result; this method never returns an error.
func (s *ProvisionService) CreateAccount(ctx context.Context, req *models.ProvisioningRequest) *models.CreateAccountResult {
	req.ApplyDefaults()

	// Validation happens before any network call; a failing request issues
	// no request to the node agent.
	if res := s.validate(req); res != nil {
		return res
	}

	server, ok := s.servers.Find(ctx, req.ServerID)
	if !ok {
		return models.Failure(models.CodeServerUnavailable, "Selected server was not found. Refresh the server list and try again.")
	}
	if server.Status != models.ServerStatusOnline {
		return models.Failure(models.CodeServerUnavailable,
			fmt.Sprintf("Server %s is currently %s. Please pick another server.", server.Name, server.Status))
	}
	if !server.Supports(req.Protocol) {
		return models.Failure(models.CodeServerUnavailable,
			fmt.Sprintf("Server %s does not support %s. Please pick another server.", server.Name, strings.ToUpper(req.Protocol)))
	}

	data, err := s.node.CreateAccount(ctx, server, req)
	if err != nil {
		return s.failureFromNodeError(ctx, server, req, err)
	}

	s.logAttempt(ctx, server.ID, req, "success", "account created")
	log.Printf("[ProvisionService] %s account created for %s on %s", strings.ToUpper(req.Protocol), req.Username, server.Domain)

	return &models.CreateAccountResult{
		Success: true,
		Message: fmt.Sprintf("%s account created successfully!", strings.ToUpper(req.Protocol)),
		Data:    data,
	}
}

// validate applies the pre-flight rules. A nil return means the request may
// proceed.
func (s *ProvisionService) validate(req *models.ProvisioningRequest) *models.CreateAccountResult {
	if !models.IsValidProtocol(req.Protocol) {
		return models.Failure(models.CodeValidationError, "Unsupported protocol.")
	}
	if req.Username == "" || !usernamePattern.MatchString(req.Username) {
		return models.Failure(models.CodeValidationError, "Username may only contain letters and digits, without spaces.")
	}
	if req.Protocol == models.ProtocolSSH && req.Password == "" {
		return models.Failure(models.CodeValidationError, "Password is required for SSH accounts.")
	}
	if req.ServerID == "" {
		return models.Failure(models.CodeValidationError, "No server selected.")
	}
	return nil
}

func (s *ProvisionService) failureFromNodeError(ctx context.Context, server *models.Server, req *models.ProvisioningRequest, err error) *models.CreateAccountResult {
	log.Printf("[ProvisionService] Create failed on %s: %v", server.Domain, err)

	code := models.CodeBackendError
	message := "The server rejected the request. Please try again or pick another server."
	if errors.Is(err, client.ErrTransport) {
		code = models.CodeTransportError
		message = "Could not reach the server. Check your connection and try again."
	}

	s.logAttempt(ctx, server.ID, req, code, err.Error())
	return models.Failure(code, message)
}

func (s *ProvisionService) logAttempt(ctx context.Context, serverID string, req *models.ProvisioningRequest, status, message string) {
	if s.logs == nil {
		return
	}
	if err := s.logs.LogAttempt(ctx, serverID, req.Protocol, req.Username, status, message); err != nil {
		log.Printf("[ProvisionService] Failed to write provision log: %v", err)
	}
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/service"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/wizard"
)

type Handler struct {
	wizard    *wizard.Manager
	servers   *service.ServerService
	provision *service.ProvisionService
}

func NewHandler(wizardManager *wizard.Manager, servers *service.ServerService, provision *service.ProvisionService) *Handler {
	return &Handler{
		wizard:    wizardManager,
		servers:   servers,
		provision: provision,
	}
}

// ==================== Catalog Handlers ====================

// ListServers returns the server catalog. This endpoint never fails: when
// the registry is unreachable the fallback sample set is served instead.
func (h *Handler) ListServers(c *gin.Context) {
	c.JSON(http.StatusOK, h.servers.List(c.Request.Context()))
}

// CreateAccount provisions an account directly, without a wizard session.
// The body is the full provisioning request; failures come back as tagged
// results, never as a bare 500.
func (h *Handler) CreateAccount(c *gin.Context) {
	var req models.ProvisioningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure(models.CodeValidationError, err.Error()))
		return
	}

	result := h.provision.CreateAccount(c.Request.Context(), &req)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ==================== Wizard Handlers ====================

// StartWizard opens a new session at the protocol step.
func (h *Handler) StartWizard(c *gin.Context) {
	c.JSON(http.StatusCreated, h.wizard.Start())
}

// GetWizard returns the current session state.
func (h *Handler) GetWizard(c *gin.Context) {
	state, err := h.wizard.State(c.Param("id"))
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SelectProtocol confirms the protocol and advances to the server step.
func (h *Handler) SelectProtocol(c *gin.Context) {
	var req models.SelectProtocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.wizard.SelectProtocol(c.Request.Context(), c.Param("id"), req.Protocol)
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SelectServer picks the target server and advances to the form step.
func (h *Handler) SelectServer(c *gin.Context) {
	var req models.SelectServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.wizard.SelectServer(c.Param("id"), req.ServerID)
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SubmitForm runs account creation for the session. On failure the session
// stays on the form step and the state carries the error message.
func (h *Handler) SubmitForm(c *gin.Context) {
	var req models.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.wizard.Submit(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Back steps one screen backwards.
func (h *Handler) Back(c *gin.Context) {
	state, err := h.wizard.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ResetWizard returns the session to the protocol step from any state.
func (h *Handler) ResetWizard(c *gin.Context) {
	state, err := h.wizard.Reset(c.Param("id"))
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// RefreshServers reloads the catalog without leaving the server step.
func (h *Handler) RefreshServers(c *gin.Context) {
	state, err := h.wizard.RefreshServers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.wizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) wizardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, wizard.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

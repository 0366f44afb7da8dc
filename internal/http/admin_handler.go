package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/auth"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/repository"
)

// AdminHandler serves the server registry behind the admin gate.
type AdminHandler struct {
	repo *repository.ServerRepository
	gate *auth.Gate
}

func NewAdminHandler(repo *repository.ServerRepository, gate *auth.Gate) *AdminHandler {
	return &AdminHandler{repo: repo, gate: gate}
}

// Login checks the gate password and returns a session token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.gate.Login(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}
		log.Printf("[AdminHandler] Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, models.AdminLoginResponse{
		Token:     token,
		ExpiresIn: int(h.gate.TTL().Seconds()),
	})
}

// ChangePassword rotates the gate credential.
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gate.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrBadPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is wrong"})
			return
		}
		log.Printf("[AdminHandler] Password change failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListServers returns every registry row.
func (h *AdminHandler) ListServers(c *gin.Context) {
	entries, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		log.Printf("[AdminHandler] List servers failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []*models.ServerEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// AddServer registers a new server. Domain, auth and nama_server are all
// required before anything is sent to the registry.
func (h *AdminHandler) AddServer(c *gin.Context) {
	var req models.AddServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Domain == "" || req.Auth == "" || req.NamaServer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain, auth and nama_server are all required"})
		return
	}

	entry := &models.ServerEntry{
		Domain:     req.Domain,
		Auth:       req.Auth,
		NamaServer: req.NamaServer,
		Location:   req.Location,
	}
	if err := h.repo.Create(c.Request.Context(), entry); err != nil {
		log.Printf("[AdminHandler] Add server failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[AdminHandler] Server registered: %s (%s)", entry.NamaServer, entry.Domain)
	c.JSON(http.StatusCreated, entry)
}

// DeleteServer removes a server. Deletion is destructive, so the request
// must carry ?confirm=true.
func (h *AdminHandler) DeleteServer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}

	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deletion requires confirm=true"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		log.Printf("[AdminHandler] Delete server failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[AdminHandler] Server deleted: id=%d", id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

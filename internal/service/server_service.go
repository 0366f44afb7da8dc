package service

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

// Server list sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// ServerStore is the registry access the server service needs.
type ServerStore interface {
	GetAll(ctx context.Context) ([]*models.ServerEntry, error)
	UpdateStatus(ctx context.Context, id int64, status string, ping int) error
}

// ServerService exposes the server catalog to the wizard. Listing never
// fails: when the registry is unreachable (or empty) and fallback is
// enabled, a fixed sample set is substituted so the wizard stays usable.
type ServerService struct {
	repo     ServerStore
	fallback bool
}

// NewServerService creates a server catalog service.
func NewServerService(repo ServerStore, fallback bool) *ServerService {
	return &ServerService{repo: repo, fallback: fallback}
}

// List returns the catalog together with its source so callers can tell
// live registry data from the degraded-mode sample set.
func (s *ServerService) List(ctx context.Context) *models.ServerListResponse {
	servers, err := s.listLive(ctx)
	if err != nil {
		log.Printf("[ServerService] Registry unavailable, serving fallback set: %v", err)
	}

	if len(servers) == 0 && s.fallback {
		return &models.ServerListResponse{Servers: sampleServers(), Source: SourceFallback}
	}
	if servers == nil {
		servers = []models.Server{}
	}
	return &models.ServerListResponse{Servers: servers, Source: SourceLive}
}

// Find returns the catalog entry for id. The bool reports existence only;
// callers decide eligibility, so "unknown server" and "known but offline"
// stay distinguishable.
func (s *ServerService) Find(ctx context.Context, id string) (*models.Server, bool) {
	for _, srv := range s.List(ctx).Servers {
		if srv.ID == id {
			return &srv, true
		}
	}
	return nil, false
}

func (s *ServerService) listLive(ctx context.Context) ([]models.Server, error) {
	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	servers := make([]models.Server, 0, len(entries))
	for _, e := range entries {
		servers = append(servers, models.Server{
			ID:       strconv.FormatInt(e.ID, 10),
			Name:     e.NamaServer,
			Domain:   e.Domain,
			Location: e.Location,
			Auth:     e.Auth,
			Status:   e.Status,
			// The registry does not track per-protocol support; every
			// node agent build provisions all four.
			Protocols: models.AllProtocols,
			Ping:      e.Ping,
			Users:     e.Users,
		})
	}
	return servers, nil
}

// RefreshStatuses probes every registered server over TCP and records the
// outcome. Wired to cron; also callable from the admin API.
func (s *ServerService) RefreshStatuses(ctx context.Context) {
	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		log.Printf("[ServerService] Status refresh skipped, registry unavailable: %v", err)
		return
	}

	for _, e := range entries {
		status, ping := probe(e.Domain)
		if e.Status == models.ServerStatusMaintenance {
			// Maintenance is set by operators; probes only update ping.
			status = models.ServerStatusMaintenance
		}
		if err := s.repo.UpdateStatus(ctx, e.ID, status, ping); err != nil {
			log.Printf("[ServerService] Failed to record status for %s: %v", e.Domain, err)
		}
	}
}

// probe dials the node agent and measures round-trip latency. Bare domains
// are dialed on the TLS port; a domain carrying its own port is dialed as-is.
func probe(domain string) (status string, ping int) {
	addr := domain
	if _, _, err := net.SplitHostPort(domain); err != nil {
		addr = net.JoinHostPort(domain, "443")
	}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return models.ServerStatusOffline, 0
	}
	conn.Close()
	return models.ServerStatusOnline, int(time.Since(start).Milliseconds())
}

// sampleServers is the fixed degraded-mode catalog shown when the registry
// cannot be read.
func sampleServers() []models.Server {
	return []models.Server{
		{
			ID:        "sg1",
			Name:      "Singapore 1",
			Domain:    "sg1.kedaivpn.my.id",
			Location:  "Singapore",
			Auth:      "sg1-auth-key",
			Status:    models.ServerStatusOnline,
			Protocols: []string{models.ProtocolSSH, models.ProtocolVMess, models.ProtocolVLESS, models.ProtocolTrojan},
			Ping:      25,
			Users:     45,
		},
		{
			ID:        "us1",
			Name:      "United States 1",
			Domain:    "us1.kedaivpn.my.id",
			Location:  "United States",
			Auth:      "us1-auth-key",
			Status:    models.ServerStatusOnline,
			Protocols: []string{models.ProtocolSSH, models.ProtocolVMess, models.ProtocolVLESS},
			Ping:      150,
			Users:     32,
		},
		{
			ID:        "jp1",
			Name:      "Japan 1",
			Domain:    "jp1.kedaivpn.my.id",
			Location:  "Japan",
			Auth:      "jp1-auth-key",
			Status:    models.ServerStatusMaintenance,
			Protocols: []string{models.ProtocolSSH, models.ProtocolTrojan},
			Ping:      75,
			Users:     0,
		},
	}
}

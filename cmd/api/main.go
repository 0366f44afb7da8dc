package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/auth"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/client"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/config"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/db"
	httpserver "github.com/kedaivpn/vpn-platform/provisioning-service/internal/http"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/repository"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/service"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/wizard"
)

func main() {
	log.Println("Starting Provisioning Service...")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	database, err := db.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize repositories
	serverRepo := repository.NewServerRepository(database.Pool)
	logRepo := repository.NewProvisionLogRepository(database.Pool)

	// Initialize node agent client
	nodeClient := client.NewNodeClient(
		cfg.Node.Scheme,
		cfg.Node.Timeout,
		cfg.Node.SSHWSPort,
		cfg.Node.SSHTLSPort,
	)

	// Initialize services
	serverService := service.NewServerService(serverRepo, cfg.Wizard.FallbackServers)
	provisionService := service.NewProvisionService(serverService, nodeClient, logRepo)

	// Wizard session manager
	wizardManager := wizard.NewManager(serverService, provisionService, cfg.Wizard.SessionTTL)

	// Admin gate
	credentials, err := auth.NewMemoryStore(cfg.Admin.Password)
	if err != nil {
		log.Fatalf("Failed to seed admin credential: %v", err)
	}
	gate := auth.NewGate(credentials, cfg.JWT.SecretKey, cfg.JWT.TTL)

	// Background jobs: server reachability probes and session cleanup
	c := cron.New()
	c.AddFunc("@every 1m", func() {
		serverService.RefreshStatuses(context.Background())
	})
	c.AddFunc("@every 5m", wizardManager.SweepExpired)
	c.Start()
	defer c.Stop()

	// Initialize HTTP server
	handler := httpserver.NewHandler(wizardManager, serverService, provisionService)
	adminHandler := httpserver.NewAdminHandler(serverRepo, gate)
	server := httpserver.NewServer(cfg, handler, adminHandler)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	log.Println("Server exited")
}

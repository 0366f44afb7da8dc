package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

type ProvisionLogRepository struct {
	pool *pgxpool.Pool
}

func NewProvisionLogRepository(pool *pgxpool.Pool) *ProvisionLogRepository {
	return &ProvisionLogRepository{pool: pool}
}

// Create appends a provisioning log entry.
func (r *ProvisionLogRepository) Create(ctx context.Context, logEntry *models.ProvisionLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO provisioning.provision_logs (id, server_id, protocol, username, action, status, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		logEntry.ID, logEntry.ServerID, logEntry.Protocol, logEntry.Username,
		logEntry.Action, logEntry.Status, logEntry.Message, logEntry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert provision log: %w", err)
	}

	return nil
}

// GetByServerID retrieves recent log entries for one server.
func (r *ProvisionLogRepository) GetByServerID(ctx context.Context, serverID string, limit int) ([]*models.ProvisionLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, server_id, protocol, username, action, status, message, metadata, created_at
		FROM provisioning.provision_logs
		WHERE server_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("query provision logs: %w", err)
	}
	defer rows.Close()

	var logEntries []*models.ProvisionLog
	for rows.Next() {
		logEntry := &models.ProvisionLog{}
		err := rows.Scan(
			&logEntry.ID, &logEntry.ServerID, &logEntry.Protocol, &logEntry.Username,
			&logEntry.Action, &logEntry.Status, &logEntry.Message, &logEntry.Metadata, &logEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan provision log: %w", err)
		}
		logEntries = append(logEntries, logEntry)
	}

	return logEntries, rows.Err()
}

// LogAttempt is a helper to record one provisioning attempt outcome.
// Credential material must never be passed through message or metadata.
func (r *ProvisionLogRepository) LogAttempt(ctx context.Context, serverID, protocol, username, status, message string) error {
	logEntry := &models.ProvisionLog{
		ServerID: serverID,
		Protocol: protocol,
		Username: username,
		Action:   "create_account",
		Status:   status,
		Message:  message,
	}
	return r.Create(ctx, logEntry)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/models"
)

var ErrNotFound = errors.New("not found")

type ServerRepository struct {
	pool *pgxpool.Pool
}

func NewServerRepository(pool *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{pool: pool}
}

// Create registers a new server and returns its assigned id.
func (r *ServerRepository) Create(ctx context.Context, entry *models.ServerEntry) error {
	query := `
		INSERT INTO provisioning.servers (domain, auth, nama_server, location, status, ping, users)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	status := entry.Status
	if status == "" {
		status = models.ServerStatusOffline
	}

	err := r.pool.QueryRow(ctx, query,
		entry.Domain, entry.Auth, entry.NamaServer, entry.Location, status, entry.Ping, entry.Users,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert server: %w", err)
	}
	entry.Status = status

	return nil
}

// GetAll retrieves every registered server ordered by name.
func (r *ServerRepository) GetAll(ctx context.Context) ([]*models.ServerEntry, error) {
	query := `
		SELECT id, domain, auth, nama_server, location, status, ping, users, created_at, updated_at
		FROM provisioning.servers
		ORDER BY nama_server
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// GetByID retrieves one server by its numeric id.
func (r *ServerRepository) GetByID(ctx context.Context, id int64) (*models.ServerEntry, error) {
	query := `
		SELECT id, domain, auth, nama_server, location, status, ping, users, created_at, updated_at
		FROM provisioning.servers
		WHERE id = $1
	`

	return r.scanEntry(r.pool.QueryRow(ctx, query, id))
}

// Delete removes a server from the registry.
func (r *ServerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM provisioning.servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus records the result of a reachability probe.
func (r *ServerRepository) UpdateStatus(ctx context.Context, id int64, status string, ping int) error {
	query := `
		UPDATE provisioning.servers
		SET status = $2, ping = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, status, ping)
	if err != nil {
		return fmt.Errorf("update server status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ServerRepository) scanEntry(row pgx.Row) (*models.ServerEntry, error) {
	entry := &models.ServerEntry{}
	err := row.Scan(
		&entry.ID, &entry.Domain, &entry.Auth, &entry.NamaServer, &entry.Location,
		&entry.Status, &entry.Ping, &entry.Users, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan server: %w", err)
	}
	return entry, nil
}

func (r *ServerRepository) scanEntries(rows pgx.Rows) ([]*models.ServerEntry, error) {
	var entries []*models.ServerEntry
	for rows.Next() {
		entry := &models.ServerEntry{}
		err := rows.Scan(
			&entry.ID, &entry.Domain, &entry.Auth, &entry.NamaServer, &entry.Location,
			&entry.Status, &entry.Ping, &entry.Users, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

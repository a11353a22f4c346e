package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

// Repository is the durable registry backend. Durability is soft: agents
// re-register on their own startup, so the table only needs to be rebuildable.
type Repository struct {
	pool *pgxpool.Pool
}

var _ portregistry.Registry = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `instance_id, logical_name, endpoint, object_path, interface_name,
	tools_jsonb, status, last_seen, cpu_usage, created_at`

func (r *Repository) Upsert(ctx context.Context, reg domainagent.Registration) error {
	toolsJSON, err := json.Marshal(reg.Tools)
	if err != nil {
		return fmt.Errorf("marshaling tools: %w", err)
	}

	query := `
		INSERT INTO agent_instances (` + columns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (instance_id) DO UPDATE SET
			logical_name = EXCLUDED.logical_name,
			endpoint = EXCLUDED.endpoint,
			object_path = EXCLUDED.object_path,
			interface_name = EXCLUDED.interface_name,
			tools_jsonb = EXCLUDED.tools_jsonb,
			status = EXCLUDED.status,
			last_seen = EXCLUDED.last_seen,
			cpu_usage = EXCLUDED.cpu_usage`

	_, err = r.pool.Exec(ctx, query,
		reg.InstanceID, reg.LogicalName, reg.Address.Endpoint, reg.Address.Path,
		reg.Address.Interface, toolsJSON, string(reg.Status), reg.LastSeen,
		reg.CPUUsage, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting instance: %w", err)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, instanceID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM agent_instances WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("removing instance: %w", err)
	}
	return nil
}

func (r *Repository) ListAll(ctx context.Context) ([]domainagent.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM agent_instances`)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func (r *Repository) GetByLogicalName(ctx context.Context, name string) ([]domainagent.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM agent_instances WHERE logical_name = $1 ORDER BY created_at`, name)
	if err != nil {
		return nil, fmt.Errorf("querying instances for %q: %w", name, err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func (r *Repository) GetByInstanceID(ctx context.Context, instanceID string) (domainagent.Registration, error) {
	var reg domainagent.Registration
	var toolsBytes []byte
	var status string

	err := r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM agent_instances WHERE instance_id = $1`, instanceID,
	).Scan(
		&reg.InstanceID, &reg.LogicalName, &reg.Address.Endpoint, &reg.Address.Path,
		&reg.Address.Interface, &toolsBytes, &status, &reg.LastSeen,
		&reg.CPUUsage, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Registration{}, portregistry.ErrNotFound
		}
		return domainagent.Registration{}, fmt.Errorf("querying instance: %w", err)
	}

	reg.Status = domainagent.Status(status)
	if err := json.Unmarshal(toolsBytes, &reg.Tools); err != nil {
		return domainagent.Registration{}, fmt.Errorf("unmarshaling tools: %w", err)
	}
	return reg, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, instanceID string, status domainagent.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE agent_instances SET status = $1 WHERE instance_id = $2`, string(status), instanceID)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return portregistry.ErrNotFound
	}
	return nil
}

func (r *Repository) Touch(ctx context.Context, instanceID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE agent_instances SET last_seen = now() WHERE instance_id = $1`, instanceID)
	if err != nil {
		return fmt.Errorf("touching instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return portregistry.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateLoad(ctx context.Context, instanceID string, cpuUsage float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE agent_instances SET cpu_usage = $1 WHERE instance_id = $2`, cpuUsage, instanceID)
	if err != nil {
		return fmt.Errorf("updating load: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return portregistry.ErrNotFound
	}
	return nil
}

func scanRegistrations(rows pgx.Rows) ([]domainagent.Registration, error) {
	var out []domainagent.Registration
	for rows.Next() {
		var reg domainagent.Registration
		var toolsBytes []byte
		var status string

		if err := rows.Scan(
			&reg.InstanceID, &reg.LogicalName, &reg.Address.Endpoint, &reg.Address.Path,
			&reg.Address.Interface, &toolsBytes, &status, &reg.LastSeen,
			&reg.CPUUsage, &reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning instance: %w", err)
		}

		reg.Status = domainagent.Status(status)
		if err := json.Unmarshal(toolsBytes, &reg.Tools); err != nil {
			return nil, fmt.Errorf("unmarshaling tools: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

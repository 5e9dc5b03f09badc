package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

var _ repository.AIModelRepository = (*aiModelRepo)(nil)

type aiModelRepo struct {
	pool *pgxpool.Pool
}

func NewAIModelRepo(pool *pgxpool.Pool) *aiModelRepo {
	return &aiModelRepo{pool: pool}
}

// Upsert is keyed by name. A conflicting row keeps its active flag: models
// are deactivated explicitly, never as a side effect of a config re-sync.
func (r *aiModelRepo) Upsert(ctx context.Context, tx repository.Tx, models []*model.AIModel) error {
	const q = `
INSERT INTO ai_models (name, provider, kind, config, tier, cost_per_token, max_tokens, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (name) DO UPDATE SET
  provider       = EXCLUDED.provider,
  kind           = EXCLUDED.kind,
  config         = EXCLUDED.config,
  tier           = EXCLUDED.tier,
  cost_per_token = EXCLUDED.cost_per_token,
  max_tokens     = EXCLUDED.max_tokens,
  updated_at     = EXCLUDED.updated_at;`

	for _, m := range models {
		cfg, err := json.Marshal(m.Config)
		if err != nil {
			return err
		}
		m.UpdatedAt = time.Now()
		if _, err := execSQL(ctx, r.pool, tx, q,
			m.Name, m.Provider, string(m.Kind), cfg, int(m.Tier), m.CostPerToken, m.MaxTokens, m.Active, m.CreatedAt, m.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

const modelColumns = `name, provider, kind, config, tier, cost_per_token, max_tokens, active, created_at, updated_at`

func scanModel(row pgx.Row) (*model.AIModel, error) {
	var (
		m    model.AIModel
		kind string
		tier int
		cfg  []byte
	)
	if err := row.Scan(&m.Name, &m.Provider, &kind, &cfg, &tier, &m.CostPerToken, &m.MaxTokens, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m.Kind = model.ModelKind(kind)
	m.Tier = model.PerformanceTier(tier)
	if len(cfg) > 0 {
		_ = json.Unmarshal(cfg, &m.Config)
	}
	return &m, nil
}

func (r *aiModelRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.AIModel, error) {
	const q = `SELECT ` + modelColumns + ` FROM ai_models WHERE name=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	return scanModel(row)
}

func (r *aiModelRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	const q = `SELECT ` + modelColumns + ` FROM ai_models WHERE active ORDER BY name;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.AIModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *aiModelRepo) SetActive(ctx context.Context, tx repository.Tx, name string, active bool) error {
	const q = `UPDATE ai_models SET active=$2, updated_at=now() WHERE name=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, name, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *aiModelRepo) DeactivateMissing(ctx context.Context, tx repository.Tx, keep []string) (int64, error) {
	const q = `UPDATE ai_models SET active=FALSE, updated_at=now() WHERE active AND NOT (name = ANY($1));`
	tag, err := execSQL(ctx, r.pool, tx, q, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

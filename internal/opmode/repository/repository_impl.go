package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/internal/opmode/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind domain.ModeKind) (*domain.ModeState, error) {
	var state domain.ModeState
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, kind, active, config, activated_at, expires_at, created_at, updated_at
		 FROM mode_states WHERE tenant_id = ? AND kind = ?`,
		tenantID,
		kind,
	).Scan(&state).Error
	if err != nil {
		return nil, err
	}
	if state.ID == 0 {
		return nil, nil
	}
	return &state, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*domain.ModeState, error) {
	var states []*domain.ModeState
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, kind, active, config, activated_at, expires_at, created_at, updated_at
		 FROM mode_states WHERE tenant_id = ?
		 ORDER BY kind`,
		tenantID,
	).Scan(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, state *domain.ModeState) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO mode_states (id, tenant_id, kind, active, config, activated_at, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, kind) DO UPDATE SET
		   active = EXCLUDED.active,
		   config = EXCLUDED.config,
		   activated_at = EXCLUDED.activated_at,
		   expires_at = EXCLUDED.expires_at,
		   updated_at = EXCLUDED.updated_at`,
		state.ID,
		state.TenantID,
		state.Kind,
		state.Active,
		state.Config,
		state.ActivatedAt,
		state.ExpiresAt,
		state.CreatedAt,
		state.UpdatedAt,
	).Error
}

func (r *repo) MarkInactive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind domain.ModeKind, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE mode_states
		 SET active = ?, config = NULL, updated_at = ?
		 WHERE tenant_id = ? AND kind = ?`,
		false,
		now,
		tenantID,
		kind,
	).Error
}

// MarkExpired settles the row only while it is still active and past its
// expiry, so a stale reader never overwrites a concurrent re-activation.
// Reports whether this call settled the row.
func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind domain.ModeKind, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE mode_states
		 SET active = ?, config = NULL, updated_at = ?
		 WHERE tenant_id = ? AND kind = ? AND active = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		false,
		now,
		tenantID,
		kind,
		true,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindActiveExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.ModeState, error) {
	var states []*domain.ModeState
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, kind, active, config, activated_at, expires_at, created_at, updated_at
		 FROM mode_states
		 WHERE active = ? AND expires_at <= ?
		 ORDER BY expires_at ASC, id ASC
		 LIMIT ?`,
		true,
		now,
		limit,
	).Scan(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

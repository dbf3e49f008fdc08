package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind ModeKind) (*ModeState, error)
	FindAll(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*ModeState, error)
	Upsert(ctx context.Context, db *gorm.DB, state *ModeState) error
	MarkInactive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind ModeKind, now time.Time) error
	MarkExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, kind ModeKind, now time.Time) (bool, error)
	FindActiveExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*ModeState, error)
}

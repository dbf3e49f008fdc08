package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/mesaops/comanda/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	From string
	To   string
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, date string) (*DailyCostReport, error)
	Upsert(ctx context.Context, db *gorm.DB, report *DailyCostReport) error
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*DailyCostReport, error)
}

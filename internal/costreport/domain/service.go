package domain

import (
	"context"
	"errors"

	"github.com/mesaops/comanda/pkg/db/pagination"
)

type GenerateRequest struct {
	Date string
}

type GetRequest struct {
	Date string
}

type ListRequest struct {
	pagination.Pagination

	From string
	To   string
}

type ListResponse struct {
	pagination.PageInfo
	Reports []DailyCostReport `json:"reports"`
}

// Service is the daily cost analysis engine. Generate recomputes from the
// ledgers and replaces any stored report for the key; Get is a pure read
// and never triggers generation.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (DailyCostReport, error)
	Get(ctx context.Context, req GetRequest) (DailyCostReport, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidDate   = errors.New("invalid_date")
	ErrNotFound      = errors.New("not_found")
)

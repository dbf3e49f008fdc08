package server

import (
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/mesaops/comanda/internal/tenantctx"
)

const tenantHeader = "X-Tenant-ID"

// TenantRequired resolves the tenant from the request header and stashes it
// in the request context. Every /v1 route is tenant scoped; there is no
// cross-tenant surface.
func (s *Server) TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(tenantHeader)
		if raw == "" {
			AbortWithError(c, newValidationError("tenant", "missing_tenant", "X-Tenant-ID header is required"))
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			AbortWithError(c, newValidationError("tenant", "invalid_tenant", "X-Tenant-ID must be a positive integer"))
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), snowflake.ID(id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

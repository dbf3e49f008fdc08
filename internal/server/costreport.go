package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	costreportdomain "github.com/mesaops/comanda/internal/costreport/domain"
	"github.com/mesaops/comanda/pkg/db/pagination"
)

func (s *Server) GenerateDailyReport(c *gin.Context) {
	report, err := s.reportSvc.Generate(c.Request.Context(), costreportdomain.GenerateRequest{
		Date: c.Param("date"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetDailyReport(c *gin.Context) {
	report, err := s.reportSvc.Get(c.Request.Context(), costreportdomain.GetRequest{
		Date: c.Param("date"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) ListDailyReports(c *gin.Context) {
	var query struct {
		pagination.Pagination

		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.List(c.Request.Context(), costreportdomain.ListRequest{
		Pagination: query.Pagination,
		From:       query.From,
		To:         query.To,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Reports,
		"page_info": resp.PageInfo,
	})
}

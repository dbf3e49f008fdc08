package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
)

type activateModeRequest struct {
	PeakDemand   *opmodedomain.PeakDemandConfig   `json:"peak_demand,omitempty"`
	SpecialHours *opmodedomain.SpecialHoursConfig `json:"special_hours,omitempty"`
	TTLMinutes   *int                             `json:"ttl_minutes,omitempty"`
}

type updateModeRequest struct {
	PeakDemand   *opmodedomain.PeakDemandPatch   `json:"peak_demand,omitempty"`
	SpecialHours *opmodedomain.SpecialHoursPatch `json:"special_hours,omitempty"`
}

func (s *Server) parseKindParam(c *gin.Context) (opmodedomain.ModeKind, bool) {
	kind, err := opmodedomain.ParseKind(c.Param("kind"))
	if err != nil {
		AbortWithError(c, err)
		return "", false
	}
	return kind, true
}

func (s *Server) ActivateMode(c *gin.Context) {
	kind, ok := s.parseKindParam(c)
	if !ok {
		return
	}

	var req activateModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	state, err := s.modeSvc.Activate(c.Request.Context(), opmodedomain.ActivateRequest{
		Kind:         kind,
		PeakDemand:   req.PeakDemand,
		SpecialHours: req.SpecialHours,
		TTLMinutes:   req.TTLMinutes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) UpdateMode(c *gin.Context) {
	kind, ok := s.parseKindParam(c)
	if !ok {
		return
	}

	var req updateModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	state, err := s.modeSvc.Update(c.Request.Context(), opmodedomain.UpdateRequest{
		Kind:         kind,
		PeakDemand:   req.PeakDemand,
		SpecialHours: req.SpecialHours,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) DeactivateMode(c *gin.Context) {
	kind, ok := s.parseKindParam(c)
	if !ok {
		return
	}

	if err := s.modeSvc.Deactivate(c.Request.Context(), opmodedomain.DeactivateRequest{Kind: kind}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetMode(c *gin.Context) {
	kind, ok := s.parseKindParam(c)
	if !ok {
		return
	}

	state, err := s.modeSvc.Get(c.Request.Context(), opmodedomain.GetRequest{Kind: kind})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) ListModes(c *gin.Context) {
	states, err := s.modeSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": states})
}

func (s *Server) ResolveEffects(c *gin.Context) {
	snap, err := s.resolver.Resolve(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snap})
}

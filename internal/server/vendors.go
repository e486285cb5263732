package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
)

func (s *Server) HandleCreateVendor(c *gin.Context) {
	var req vendordomain.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.vendorSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) HandleVendorStats(c *gin.Context) {
	id, ok := vendorIDParam(c)
	if !ok {
		return
	}

	stats, err := s.vendorSvc.Stats(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) HandleVendorAchievements(c *gin.Context) {
	id, ok := vendorIDParam(c)
	if !ok {
		return
	}

	unlocked, err := s.achievements.ListUnlocked(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": unlocked})
}

func (s *Server) HandleVendorNotifications(c *gin.Context) {
	id, ok := vendorIDParam(c)
	if !ok {
		return
	}

	items, err := s.notifySvc.ListByVendor(c.Request.Context(), id, parseIntQuery(c, "limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (s *Server) HandleVendorSettlements(c *gin.Context) {
	id, ok := vendorIDParam(c)
	if !ok {
		return
	}

	items, err := s.settlementSvc.ListByVendor(c.Request.Context(), id, parseIntQuery(c, "limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": items})
}

func (s *Server) HandleLeaderboard(c *gin.Context) {
	entries, err := s.vendorSvc.Leaderboard(c.Request.Context(), c.Query("by"), parseIntQuery(c, "limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func vendorIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_vendor_id", "invalid vendor id"))
		return 0, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

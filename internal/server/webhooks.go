package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	webhookdomain "github.com/marketlane/settlo/internal/webhook/domain"
)

func (s *Server) HandleWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		// Redelivery of a settled event is success from the provider's
		// point of view; anything else would make it retry forever.
		if errors.Is(err, webhookdomain.ErrDuplicateEvent) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) HandleListWebhookLogs(c *gin.Context) {
	req := webhookdomain.ListEventsRequest{
		Provider:  c.Query("provider"),
		Status:    c.Query("status"),
		EventType: c.Query("event_type"),
		PageToken: c.Query("page_token"),
		PageSize:  parseIntQuery(c, "page_size"),
	}

	resp, err := s.webhookSvc.ListEvents(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleReplayWebhook(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_event_id", "invalid event id"))
		return
	}

	if err := s.webhookSvc.Replay(c.Request.Context(), id); err != nil {
		if errors.Is(err, webhookdomain.ErrDuplicateEvent) {
			c.JSON(http.StatusOK, gin.H{"status": "already_applied"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) HandleWebhookHealth(c *gin.Context) {
	report := s.webhookSvc.Health(c.Request.Context())

	status := http.StatusOK
	if !report.Database {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/api/middleware"
	"omnichannel/inquiries/internal/services"
)

// RestAgentHandler lets authenticated agents join and leave the dispatch pool.
type RestAgentHandler struct {
	agents services.IAgentAvailabilityService
	logger *zap.Logger
}

// NewRestAgentHandler creates a new RestAgentHandler.
func NewRestAgentHandler(agents services.IAgentAvailabilityService, logger *zap.Logger) *RestAgentHandler {
	return &RestAgentHandler{agents: agents, logger: logger}
}

// SetAvailable handles PUT /v1/livechat/agents/availability?department=a&department=b
func (h *RestAgentHandler) SetAvailable(c *gin.Context) {
	agentID := c.GetString(middleware.ContextKeyAgentID)
	departments := c.QueryArray("department")
	if err := h.agents.SetAvailable(c.Request.Context(), agentID, departments); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agentId": agentID, "available": true, "departments": departments})
}

// SetUnavailable handles DELETE /v1/livechat/agents/availability?department=a
func (h *RestAgentHandler) SetUnavailable(c *gin.Context) {
	agentID := c.GetString(middleware.ContextKeyAgentID)
	departments := c.QueryArray("department")
	if err := h.agents.SetUnavailable(c.Request.Context(), agentID, departments); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agentId": agentID, "available": false, "departments": departments})
}

// ListAvailable handles GET /v1/livechat/agents/available?department=
func (h *RestAgentHandler) ListAvailable(c *gin.Context) {
	agents, err := h.agents.AvailableAgents(c.Request.Context(), c.Query("department"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

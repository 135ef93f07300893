package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/api/handlers"
	"omnichannel/inquiries/internal/api/middleware"
	"omnichannel/inquiries/internal/config"
	"omnichannel/inquiries/internal/services"
	"omnichannel/inquiries/internal/tasks"
)

// Dependencies groups what the public router hands to its handlers.
type Dependencies struct {
	Inquiries   services.IInquiryService
	Settings    services.ISettingsService
	Agents      services.IAgentAvailabilityService
	TaskQueue   tasks.Enqueuer
	RateLimiter *middleware.RateLimiterMiddleware
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiterMiddleware(cfg, logger)
	}

	// Apply global middleware first (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigins))

	// Authenticated groups run the limiter after AuthMiddleware so buckets are keyed by agent.
	limit := rateLimiter.Limit()

	inquiryHandler := handlers.NewRestInquiryHandler(deps.Inquiries, deps.Settings, deps.TaskQueue, logger)
	settingsHandler := handlers.NewRestSettingsHandler(deps.Settings, logger)
	agentHandler := handlers.NewRestAgentHandler(deps.Agents, logger)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", limit, func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.GET("/settings/public", limit, settingsHandler.GetPublicSettings)

		authRequired := v1.Group("/livechat")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), limit)
		{
			inquiries := authRequired.Group("/inquiries")
			inquiries.POST("", inquiryHandler.CreateInquiry)
			inquiries.GET("/queued", inquiryHandler.GetQueued)
			inquiries.GET("/position", inquiryHandler.GetPositions)
			inquiries.GET("/departments", inquiryHandler.GetDepartments)
			inquiries.POST("/next", inquiryHandler.ClaimNext)
			inquiries.POST("/sla/bulk-unset", inquiryHandler.BulkUnsetSla)

			byID := inquiries.Group("/:id")
			byID.GET("/status", inquiryHandler.GetStatus)
			byID.POST("/take", inquiryHandler.Take)
			byID.POST("/ready", inquiryHandler.Ready)
			byID.POST("/open", inquiryHandler.Open)
			byID.POST("/queue", inquiryHandler.Queue)
			byID.POST("/unlock", inquiryHandler.Unlock)
			byID.PUT("/default-agent", inquiryHandler.SetDefaultAgent)
			byID.DELETE("/default-agent", inquiryHandler.RemoveDefaultAgent)
			byID.PUT("/department", inquiryHandler.SetDepartment)

			rooms := inquiries.Group("/room/:rid")
			rooms.GET("", inquiryHandler.GetByRoom)
			rooms.DELETE("", inquiryHandler.RemoveByRoom)
			rooms.PUT("/name", inquiryHandler.SetRoomName)
			rooms.PUT("/department", inquiryHandler.SetRoomDepartment)
			rooms.PUT("/last-message", inquiryHandler.SetRoomLastMessage)
			rooms.PUT("/sla", inquiryHandler.SetRoomSla)
			rooms.DELETE("/sla", inquiryHandler.UnsetRoomSla)
			rooms.PUT("/priority", inquiryHandler.SetRoomPriority)
			rooms.DELETE("/priority", inquiryHandler.UnsetRoomPriority)

			visitors := inquiries.Group("/visitor/:token")
			visitors.GET("", inquiryHandler.GetByVisitor)
			visitors.DELETE("", inquiryHandler.RemoveByVisitor)
			visitors.PUT("/status", inquiryHandler.SetVisitorStatus)

			agents := authRequired.Group("/agents")
			agents.PUT("/availability", agentHandler.SetAvailable)
			agents.DELETE("/availability", agentHandler.SetUnavailable)
			agents.GET("/available", agentHandler.ListAvailable)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.ManagerMiddleware(), limit)
		{
			adminRequired.POST("/inquiries/unlock-all", inquiryHandler.UnlockAll)
			adminRequired.PUT("/settings/:key", settingsHandler.SetSetting)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(inquiries services.IInquiryService, dispatcher services.IDispatchService, shutdownChan chan<- struct{}, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	jsonApiHandler := handlers.NewJsonApiHandler(inquiries, dispatcher, shutdownChan, logger)
	r.POST("/api", jsonApiHandler.HandleRequest)
	return r
}

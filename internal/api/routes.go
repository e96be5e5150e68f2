package api

import (
	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/config"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/pandora-hackathon/jejak-air/internal/websocket"
	"gorm.io/gorm"
)

// Services 路由依赖的服务集合,由容器装配
type Services struct {
	Batch      service.BatchService
	LabTest    service.LabTestService
	Lab        service.LabService
	Farm       service.FarmService
	Commodity  service.CommodityService
	Statistics service.StatisticsService
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, db *gorm.DB, validator *auth.TokenValidator, hub *websocket.Hub, svcs Services) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	if cfg != nil {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(db)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 时间线推送
	if hub != nil && validator != nil {
		router.GET("/ws/timeline", websocket.TimelineHandler(hub, validator))
	}

	batchController := NewBatchController(svcs.Batch)
	labController := NewLabController(svcs.LabTest, svcs.Lab)
	farmController := NewFarmController(svcs.Farm)
	commodityController := NewCommodityController(svcs.Commodity)
	traceController := NewTraceController(svcs.Batch, svcs.LabTest)
	statisticsController := NewStatisticsController(svcs.Statistics)

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 公开溯源查询,不需要认证
	v1.GET("/trace/:code", traceController.Trace)

	authed := v1.Group("")
	authed.Use(auth.Middleware(validator))
	{
		// 批次管理路由
		batches := authed.Group("/batches")
		{
			batches.POST("", auth.RequireCapability(auth.CapManageBatch), batchController.Create)
			batches.GET("", batchController.List)
			batches.GET("/:code", batchController.Get)
			batches.PUT("/:code", auth.RequireCapability(auth.CapManageBatch), batchController.Update)
			batches.DELETE("/:code", auth.RequireCapability(auth.CapManageBatch), batchController.Delete)
			batches.GET("/:code/timeline", batchController.Timeline)
			batches.GET("/:code/shipment-status", batchController.ShipmentStatus)
			batches.POST("/:code/ship", auth.RequireCapability(auth.CapMarkShipped), batchController.Ship)
			batches.POST("/:code/receive", auth.RequireCapability(auth.CapMarkReceived), batchController.Receive)
			batches.POST("/:code/activities", auth.RequireCapability(auth.CapAddActivity), batchController.AddActivity)
			batches.POST("/:code/lab-test", auth.RequireCapability(auth.CapSubmitLabTest), labController.SubmitTest)
			batches.GET("/:code/lab-test", labController.GetTest)
		}

		// 质检面板路由
		labTests := authed.Group("/lab-tests")
		labTests.Use(auth.RequireCapability(auth.CapSubmitLabTest))
		{
			labTests.GET("/pending", labController.PendingBatches)
			labTests.GET("/history", labController.History)
		}

		// 养殖场管理路由
		farms := authed.Group("/farms")
		{
			farms.POST("", auth.RequireCapability(auth.CapManageFarm), farmController.Create)
			farms.GET("", farmController.List)
			farms.GET("/:id", farmController.Get)
			farms.PUT("/:id", auth.RequireCapability(auth.CapManageFarm), farmController.Update)
			farms.DELETE("/:id", auth.RequireCapability(auth.CapManageFarm), farmController.Delete)
			farms.POST("/:id/recalculate-risk", auth.RequireCapability(auth.CapManageFarm), farmController.RecalculateRisk)
		}

		// 参考数据路由
		authed.GET("/cities", farmController.ListCities)
		authed.POST("/cities", auth.RequireCapability(auth.CapManageReference), farmController.CreateCity)
		authed.GET("/laboratories", labController.ListLaboratories)
		authed.POST("/laboratories", auth.RequireCapability(auth.CapManageReference), labController.CreateLaboratory)
		authed.DELETE("/laboratories/:id", auth.RequireCapability(auth.CapManageReference), labController.DeleteLaboratory)
		authed.GET("/commodities", commodityController.List)
		authed.GET("/commodities/:id", commodityController.Get)
		authed.POST("/commodities", auth.RequireCapability(auth.CapManageReference), commodityController.Create)
		authed.PUT("/commodities/:id", auth.RequireCapability(auth.CapManageReference), commodityController.Update)

		// 统计路由
		statistics := authed.Group("/statistics")
		statistics.Use(auth.RequireCapability(auth.CapViewDashboard))
		{
			statistics.GET("/batches/by-quality", statisticsController.ByQuality)
			statistics.GET("/batches/by-farm", statisticsController.ByFarm)
			statistics.GET("/batches/by-time", statisticsController.ByTime)
			statistics.GET("/export", statisticsController.Export)
			statistics.GET("/owner", statisticsController.Owner)
		}
	}

	return router
}

package container

import (
	"fmt"
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/api"
	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/config"
	"github.com/pandora-hackathon/jejak-air/internal/database"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/pandora-hackathon/jejak-air/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务与 WebSocket hub
type Container struct {
	db                *gorm.DB
	hub               *websocket.Hub
	tokenValidator    *auth.TokenValidator
	riskService       service.RiskService
	batchService      service.BatchService
	labTestService    service.LabTestService
	labService        service.LabService
	farmService       service.FarmService
	commodityService  service.CommodityService
	statisticsService service.StatisticsService
	importService     service.ImportService
	auditLogService   service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化数据库（带重试机制）
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(cfg, db), nil
}

// NewContainerWithDB 基于已有数据库连接装配容器(用于测试)
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	hub := websocket.NewHub()
	tokenValidator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	riskService := service.NewRiskService()
	codes := service.NewBatchCodeGenerator()

	batchService := service.NewBatchService(db, codes, auditLogService, hub)
	labTestService := service.NewLabTestService(db, riskService, auditLogService, hub)
	labService := service.NewLabService(db, auditLogService)
	farmService := service.NewFarmService(db, riskService, auditLogService)
	commodityService := service.NewCommodityService(db, auditLogService)
	statisticsService := service.NewStatisticsService(db)
	importService := service.NewImportService(db, riskService, api.GetLogger())

	return &Container{
		db:                db,
		hub:               hub,
		tokenValidator:    tokenValidator,
		riskService:       riskService,
		batchService:      batchService,
		labTestService:    labTestService,
		labService:        labService,
		farmService:       farmService,
		commodityService:  commodityService,
		statisticsService: statisticsService,
		importService:     importService,
		auditLogService:   auditLogService,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 JWT 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// RiskService 获取风险评分服务
func (c *Container) RiskService() service.RiskService {
	return c.riskService
}

// BatchService 获取批次服务
func (c *Container) BatchService() service.BatchService {
	return c.batchService
}

// LabTestService 获取检测结果服务
func (c *Container) LabTestService() service.LabTestService {
	return c.labTestService
}

// ImportService 获取数据导入服务
func (c *Container) ImportService() service.ImportService {
	return c.importService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// Services 返回路由需要的服务集合
func (c *Container) Services() api.Services {
	return api.Services{
		Batch:      c.batchService,
		LabTest:    c.labTestService,
		Lab:        c.labService,
		Farm:       c.farmService,
		Commodity:  c.commodityService,
		Statistics: c.statisticsService,
	}
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// CommodityService 商品参考数据服务接口
type CommodityService interface {
	CreateCommodity(ctx context.Context, req *CommodityRequest) (*model.Commodity, error)
	UpdateCommodity(ctx context.Context, id uint, req *CommodityRequest) (*model.Commodity, error)
	GetCommodity(id uint) (*model.Commodity, error)
	ListCommodities() ([]*model.Commodity, error)
}

// CommodityRequest 创建/更新商品请求
// @Description 商品参考数据的请求参数
type CommodityRequest struct {
	Code                   string   `json:"code" example:"VANNAMEI" binding:"required"` // 商品编码
	Name                   string   `json:"name" example:"Whiteleg shrimp" binding:"required"` // 商品名称
	DefaultSafetyThreshold *float64 `json:"default_safety_threshold" example:"500"` // Cs-137 安全阈值(Bq/kg),留空用全局默认值
}

// commodityService 商品参考数据服务实现
type commodityService struct {
	db          *gorm.DB
	auditLogSvc AuditLogService
}

// NewCommodityService 创建商品参考数据服务
func NewCommodityService(db *gorm.DB, auditLogSvc AuditLogService) CommodityService {
	return &commodityService{db: db, auditLogSvc: auditLogSvc}
}

// CreateCommodity 创建商品
func (s *commodityService) CreateCommodity(ctx context.Context, req *CommodityRequest) (*model.Commodity, error) {
	commodity := &model.Commodity{
		Code:                   req.Code,
		Name:                   req.Name,
		DefaultSafetyThreshold: req.DefaultSafetyThreshold,
	}
	if err := commodity.Validate(); err != nil {
		return nil, NewValidationError("commodity", err.Error())
	}
	if err := repository.NewCommodityRepository(s.db).Save(commodity); err != nil {
		return nil, fmt.Errorf("failed to create commodity: %w", err)
	}
	s.recordAudit(ctx, "create", "commodity", fmt.Sprintf("%d", commodity.ID))
	return commodity, nil
}

// UpdateCommodity 更新商品。阈值变更只影响之后提交的检测,
// 已固化在历史检测记录上的阈值不回溯
func (s *commodityService) UpdateCommodity(ctx context.Context, id uint, req *CommodityRequest) (*model.Commodity, error) {
	commodity, err := s.GetCommodity(id)
	if err != nil {
		return nil, err
	}

	commodity.Code = req.Code
	commodity.Name = req.Name
	commodity.DefaultSafetyThreshold = req.DefaultSafetyThreshold
	if err := commodity.Validate(); err != nil {
		return nil, NewValidationError("commodity", err.Error())
	}
	if err := repository.NewCommodityRepository(s.db).Save(commodity); err != nil {
		return nil, fmt.Errorf("failed to update commodity: %w", err)
	}

	s.recordAudit(ctx, "update", "commodity", fmt.Sprintf("%d", commodity.ID))
	return commodity, nil
}

// GetCommodity 获取商品详情
func (s *commodityService) GetCommodity(id uint) (*model.Commodity, error) {
	commodity, err := repository.NewCommodityRepository(s.db).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("commodity %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return commodity, nil
}

// ListCommodities 返回所有商品
func (s *commodityService) ListCommodities() ([]*model.Commodity, error) {
	return repository.NewCommodityRepository(s.db).FindAll()
}

// recordAudit 记录审计日志,未认证请求不记录
func (s *commodityService) recordAudit(ctx context.Context, action, resourceType, resourceID string) {
	if s.auditLogSvc == nil {
		return
	}
	user := auth.UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, user.ID, action, resourceType, resourceID, nil)
}

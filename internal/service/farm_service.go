package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pandora-hackathon/jejak-air/internal/auth"
	"github.com/pandora-hackathon/jejak-air/internal/metrics"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"github.com/pandora-hackathon/jejak-air/internal/repository"
	"gorm.io/gorm"
)

// FarmService 养殖场服务接口
type FarmService interface {
	CreateFarm(ctx context.Context, req *FarmRequest) (*model.Farm, error)
	UpdateFarm(ctx context.Context, id uint, req *FarmRequest) (*model.Farm, error)
	GetFarm(id uint) (*model.Farm, error)
	ListFarms(ctx context.Context) ([]*model.Farm, error)
	DeleteFarm(ctx context.Context, id uint) error
	RecalculateRisk(ctx context.Context, id uint) (int, error)
	CreateCity(ctx context.Context, req *CityRequest) (*model.City, error)
	ListCities() ([]*model.City, error)
}

// FarmRequest 创建/更新养殖场请求
// @Description 养殖场的请求参数
type FarmRequest struct {
	Name     string `json:"name" example:"Tambak Makmur" binding:"required"` // 养殖场名称
	Location string `json:"location" example:"Desa Pabean Udik" binding:"required"` // 场址
	CityID   *uint  `json:"city_id" example:"3"` // 城市 ID(可选)
}

// CityRequest 创建城市请求
// @Description 城市参考数据的请求参数
type CityRequest struct {
	Name     string `json:"name" example:"Indramayu" binding:"required"` // 城市名称
	Province string `json:"province" example:"Jawa Barat" binding:"required"` // 省份
	Code     string `json:"code" example:"IDM"` // 批次编码前缀
}

// farmService 养殖场服务实现
type farmService struct {
	db          *gorm.DB
	riskSvc     RiskService
	auditLogSvc AuditLogService
}

// NewFarmService 创建养殖场服务
func NewFarmService(db *gorm.DB, riskSvc RiskService, auditLogSvc AuditLogService) FarmService {
	return &farmService{
		db:          db,
		riskSvc:     riskSvc,
		auditLogSvc: auditLogSvc,
	}
}

// CreateFarm 创建养殖场,场主为当前用户
func (s *farmService) CreateFarm(ctx context.Context, req *FarmRequest) (*model.Farm, error) {
	farm := &model.Farm{
		Name:     req.Name,
		Location: req.Location,
		CityID:   req.CityID,
	}
	if user := auth.UserFromContext(ctx); user != nil && user.ID != "" {
		ownerID := user.ID
		farm.OwnerID = &ownerID
	}
	if err := farm.Validate(); err != nil {
		return nil, NewValidationError("farm", err.Error())
	}
	if req.CityID != nil {
		if _, err := repository.NewCityRepository(s.db).FindByID(*req.CityID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("city %d: %w", *req.CityID, ErrNotFound)
			}
			return nil, err
		}
	}

	if err := repository.NewFarmRepository(s.db).Save(farm); err != nil {
		return nil, fmt.Errorf("failed to create farm: %w", err)
	}

	s.recordAudit(ctx, "create", "farm", fmt.Sprintf("%d", farm.ID))
	return farm, nil
}

// UpdateFarm 更新养殖场基本信息,风险评分不可由用户修改
func (s *farmService) UpdateFarm(ctx context.Context, id uint, req *FarmRequest) (*model.Farm, error) {
	farm, err := s.GetFarm(id)
	if err != nil {
		return nil, err
	}

	farm.Name = req.Name
	farm.Location = req.Location
	farm.CityID = req.CityID
	farm.City = nil
	if err := farm.Validate(); err != nil {
		return nil, NewValidationError("farm", err.Error())
	}
	if err := repository.NewFarmRepository(s.db).Save(farm); err != nil {
		return nil, fmt.Errorf("failed to update farm: %w", err)
	}

	s.recordAudit(ctx, "update", "farm", fmt.Sprintf("%d", farm.ID))
	return farm, nil
}

// GetFarm 获取养殖场详情
func (s *farmService) GetFarm(id uint) (*model.Farm, error) {
	farm, err := repository.NewFarmRepository(s.db).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("farm %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return farm, nil
}

// ListFarms 返回当前用户可见的养殖场:管理员看全部,
// 场主只看自己名下的
func (s *farmService) ListFarms(ctx context.Context) ([]*model.Farm, error) {
	repo := repository.NewFarmRepository(s.db)
	user := auth.UserFromContext(ctx)
	if user != nil && user.Role == model.RoleFarmOwner {
		return repo.FindByOwner(user.ID)
	}
	return repo.FindAll()
}

// DeleteFarm 删除养殖场
func (s *farmService) DeleteFarm(ctx context.Context, id uint) error {
	if _, err := s.GetFarm(id); err != nil {
		return err
	}
	if err := repository.NewFarmRepository(s.db).Delete(id); err != nil {
		return fmt.Errorf("failed to delete farm: %w", err)
	}
	s.recordAudit(ctx, "delete", "farm", fmt.Sprintf("%d", id))
	return nil
}

// RecalculateRisk 显式触发一次养殖场风险重算
func (s *farmService) RecalculateRisk(ctx context.Context, id uint) (int, error) {
	farm, err := s.GetFarm(id)
	if err != nil {
		return 0, err
	}
	score, err := s.riskSvc.RecalculateFarmRisk(s.db, farm)
	if err != nil {
		return 0, err
	}
	metrics.RecordRiskRecalculation("farm")
	s.recordAudit(ctx, "recalculate_risk", "farm", fmt.Sprintf("%d", id))
	return score, nil
}

// CreateCity 创建城市参考数据
func (s *farmService) CreateCity(ctx context.Context, req *CityRequest) (*model.City, error) {
	city := &model.City{
		Name:     req.Name,
		Province: req.Province,
		Code:     req.Code,
	}
	if err := city.Validate(); err != nil {
		return nil, NewValidationError("city", err.Error())
	}
	if err := repository.NewCityRepository(s.db).Save(city); err != nil {
		return nil, fmt.Errorf("failed to create city: %w", err)
	}
	s.recordAudit(ctx, "create", "city", fmt.Sprintf("%d", city.ID))
	return city, nil
}

// ListCities 返回所有城市
func (s *farmService) ListCities() ([]*model.City, error) {
	return repository.NewCityRepository(s.db).FindAll()
}

// recordAudit 记录审计日志,未认证请求不记录
func (s *farmService) recordAudit(ctx context.Context, action, resourceType, resourceID string) {
	if s.auditLogSvc == nil {
		return
	}
	user := auth.UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, user.ID, action, resourceType, resourceID, nil)
}

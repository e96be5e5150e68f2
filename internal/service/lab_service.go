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

// LabService 实验室参考数据服务接口
type LabService interface {
	CreateLaboratory(ctx context.Context, req *LaboratoryRequest) (*model.Laboratory, error)
	GetLaboratory(id uint) (*model.Laboratory, error)
	ListLaboratories() ([]*model.Laboratory, error)
	DeleteLaboratory(ctx context.Context, id uint) error
}

// LaboratoryRequest 创建实验室请求
// @Description 实验室参考数据的请求参数
type LaboratoryRequest struct {
	Name   string `json:"name" example:"Lab Pangan Cirebon" binding:"required"` // 实验室名称
	CityID *uint  `json:"city_id" example:"3"` // 城市 ID(可选)
}

// labService 实验室参考数据服务实现
type labService struct {
	db          *gorm.DB
	auditLogSvc AuditLogService
}

// NewLabService 创建实验室参考数据服务
func NewLabService(db *gorm.DB, auditLogSvc AuditLogService) LabService {
	return &labService{db: db, auditLogSvc: auditLogSvc}
}

// CreateLaboratory 创建实验室
func (s *labService) CreateLaboratory(ctx context.Context, req *LaboratoryRequest) (*model.Laboratory, error) {
	lab := &model.Laboratory{
		Name:   req.Name,
		CityID: req.CityID,
	}
	if err := lab.Validate(); err != nil {
		return nil, NewValidationError("laboratory", err.Error())
	}
	if err := repository.NewLaboratoryRepository(s.db).Save(lab); err != nil {
		return nil, fmt.Errorf("failed to create laboratory: %w", err)
	}
	s.recordAudit(ctx, "create", "laboratory", fmt.Sprintf("%d", lab.ID))
	return lab, nil
}

// GetLaboratory 获取实验室详情
func (s *labService) GetLaboratory(id uint) (*model.Laboratory, error) {
	lab, err := repository.NewLaboratoryRepository(s.db).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("laboratory %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return lab, nil
}

// ListLaboratories 返回所有实验室
func (s *labService) ListLaboratories() ([]*model.Laboratory, error) {
	return repository.NewLaboratoryRepository(s.db).FindAll()
}

// DeleteLaboratory 删除实验室
func (s *labService) DeleteLaboratory(ctx context.Context, id uint) error {
	if _, err := s.GetLaboratory(id); err != nil {
		return err
	}
	if err := repository.NewLaboratoryRepository(s.db).Delete(id); err != nil {
		return fmt.Errorf("failed to delete laboratory: %w", err)
	}
	s.recordAudit(ctx, "delete", "laboratory", fmt.Sprintf("%d", id))
	return nil
}

// recordAudit 记录审计日志,未认证请求不记录
func (s *labService) recordAudit(ctx context.Context, action, resourceType, resourceID string) {
	if s.auditLogSvc == nil {
		return
	}
	user := auth.UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, user.ID, action, resourceType, resourceID, nil)
}
